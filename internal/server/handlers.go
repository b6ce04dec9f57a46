package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sh03m2a5h/filesession-go/pkg/version"
	"go.uber.org/zap"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Uptime        int64  `json:"uptime"`
	BackendStatus string `json:"backend_status"`
	Error         string `json:"error,omitempty"`
}

// VersionResponse represents version information response
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

const healthCheckTimeout = 5 * time.Second

var startTime = time.Now()

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	response := HealthResponse{
		Status:        "healthy",
		Version:       version.Version,
		Uptime:        int64(time.Since(startTime).Seconds()),
		BackendStatus: "unknown",
	}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status, err := s.health(ctx)
		if err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			response.Status = "unhealthy"
			response.BackendStatus = "error"
			response.Error = err.Error()
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.BackendStatus = status
	}

	c.JSON(http.StatusOK, response)
}

// handleVersion handles version information requests
func (s *Server) handleVersion(c *gin.Context) {
	buildInfo := version.Get()

	response := VersionResponse{
		Version:   buildInfo.Version,
		GitCommit: buildInfo.GitCommit,
		BuildDate: buildInfo.BuildDate,
		GoVersion: buildInfo.GoVersion,
		Platform:  buildInfo.Platform,
	}

	c.JSON(http.StatusOK, response)
}
