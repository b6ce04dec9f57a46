package tracing

import (
	"context"
	"testing"

	"github.com/sh03m2a5h/filesession-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_Disabled(t *testing.T) {
	shutdown, err := Initialize(context.Background(), &config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitialize_UnsupportedProvider(t *testing.T) {
	_, err := Initialize(context.Background(), &config.TracingConfig{
		Enabled:     true,
		Provider:    "zipkin",
		ServiceName: "filesession",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tracing provider")
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint     string
		wantEndpoint string
		wantInsecure bool
	}{
		{"localhost:4318", "localhost:4318", true},
		{"http://collector:4318", "collector:4318", true},
		{"https://otel.example.com", "otel.example.com", false},
		{"otel", "otel", true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			endpoint, insecure := splitEndpoint(tt.endpoint)
			assert.Equal(t, tt.wantEndpoint, endpoint)
			assert.Equal(t, tt.wantInsecure, insecure)
		})
	}
}

func TestGetTracer(t *testing.T) {
	assert.NotNil(t, GetTracer("filesession-test"))
}
