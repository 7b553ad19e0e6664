package stitch

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/stitch/pkg/stitchauth"
)

// HealthResponse is what a stitchd backend answers on /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error: ...".
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// Livez checks that the backend is up.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readyz checks that the backend can serve requests. A degraded backend
// answers 503, which comes back as a *stitchauth.ServiceError.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.auth.DoRequest(ctx, stitchauth.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := json.Unmarshal(resp.Body, &health); err != nil {
		return nil, &stitchauth.RequestError{Code: stitchauth.RequestErrorDecoding, Err: err}
	}
	return &health, nil
}
