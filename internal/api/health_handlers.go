package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"index":    s.checkIndex(ctx),
	}

	overall := "healthy"
	for _, c := range components {
		switch {
		case c.Status == "unhealthy":
			overall = "unhealthy"
		case c.Status == "degraded" && overall == "healthy":
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkDatabase verifies the content store answers queries.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: "degraded", Message: "database not configured"}
	}
	return probe(func() (string, error) {
		_, err := s.store.CountCollectionsByUser(ctx, "")
		return "", err
	}, "database read failed")
}

// checkIndex verifies the document index is accessible and reports its size.
func (s *Server) checkIndex(ctx context.Context) ComponentHealth {
	if s.index == nil {
		return ComponentHealth{Status: "degraded", Message: "document index not configured"}
	}
	return probe(func() (string, error) {
		n, err := s.index.DocumentCount(ctx)
		if n == 1 {
			return "1 document", err
		}
		return strconv.Itoa(n) + " documents", err
	}, "document index unreachable")
}

// probe times fn. A failing probe is unhealthy and reports failMsg.
func probe(fn func() (string, error), failMsg string) ComponentHealth {
	start := time.Now()
	msg, err := fn()
	latency := time.Since(start).String()
	if err != nil {
		return ComponentHealth{Status: "unhealthy", Latency: latency, Message: failMsg}
	}
	return ComponentHealth{Status: "healthy", Latency: latency, Message: msg}
}
