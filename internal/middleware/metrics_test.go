package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sh03m2a5h/filesession-go/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		method         string
		path           string
		route          string
		label          string
		expectedStatus int
		handler        gin.HandlerFunc
	}{
		{
			name:           "Successful GET request",
			method:         http.MethodGet,
			path:           "/session",
			route:          "/session",
			label:          "/session",
			expectedStatus: http.StatusOK,
			handler: func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"values": gin.H{}})
			},
		},
		{
			name:           "Parameterised route",
			method:         http.MethodPut,
			path:           "/session/values/theme",
			route:          "/session/values/:key",
			label:          "/session/values/:key",
			expectedStatus: http.StatusNoContent,
			handler: func(c *gin.Context) {
				c.Status(http.StatusNoContent)
			},
		},
		{
			name:           "Internal server error",
			method:         http.MethodDelete,
			path:           "/session",
			route:          "/session",
			label:          "/session",
			expectedStatus: http.StatusInternalServerError,
			handler: func(c *gin.Context) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(MetricsMiddleware())
			router.Handle(tt.method, tt.route, tt.handler)

			counter := metrics.HTTPRequestsTotal.WithLabelValues(tt.method, tt.label, strconv.Itoa(tt.expectedStatus))
			before := testutil.ToFloat64(counter)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(MetricsMiddleware())

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/no/such/path", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
