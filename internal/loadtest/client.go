package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/royale/internal/domain/model"
	"github.com/okian/royale/internal/domain/types"
)

// Target is the system under test.
type Target interface {
	Submit(ctx context.Context, scheduleID string, tel model.Telemetry) (types.Status, error)
	GroupResult(ctx context.Context, groupID string) (types.MatchResult, error)
}

// HTTPTarget talks to a running server.
type HTTPTarget struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTarget creates a target for the server at baseURL.
func NewHTTPTarget(baseURL string, timeout time.Duration) *HTTPTarget {
	return &HTTPTarget{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Health reports whether the server answers its health endpoint.
func (c *HTTPTarget) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Submit posts one match. Rejections are returned as a Status; only
// transport failures and unreadable replies are errors.
func (c *HTTPTarget) Submit(ctx context.Context, scheduleID string, tel model.Telemetry) (types.Status, error) {
	body, err := json.Marshal(map[string]any{"schedule_id": scheduleID, "telemetry": tel})
	if err != nil {
		return types.Status{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/matches", bytes.NewReader(body))
	if err != nil {
		return types.Status{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.Status{}, err
	}
	defer resp.Body.Close()

	var st types.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return types.Status{}, fmt.Errorf("status %d: %w", resp.StatusCode, err)
	}
	return st, nil
}

// GroupResult fetches the standings of a group.
func (c *HTTPTarget) GroupResult(ctx context.Context, groupID string) (types.MatchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/groups/"+url.PathEscape(groupID)+"/result", nil)
	if err != nil {
		return types.MatchResult{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return types.MatchResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.MatchResult{}, fmt.Errorf("group result: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var res types.MatchResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return types.MatchResult{}, fmt.Errorf("decoding group result: %w", err)
	}
	return res, nil
}

// Ingestor is the in-process service surface a ServiceTarget drives.
type Ingestor interface {
	IngestMatch(ctx context.Context, tel model.Telemetry, scheduleID string) types.Status
	GroupResult(ctx context.Context, groupID string) (types.MatchResult, error)
}

// ServiceTarget calls the service directly, skipping the network.
type ServiceTarget struct {
	svc Ingestor
}

// NewServiceTarget wraps an in-process service.
func NewServiceTarget(svc Ingestor) *ServiceTarget {
	return &ServiceTarget{svc: svc}
}

// Submit ingests one match.
func (s *ServiceTarget) Submit(ctx context.Context, scheduleID string, tel model.Telemetry) (types.Status, error) {
	return s.svc.IngestMatch(ctx, tel, scheduleID), nil
}

// GroupResult returns the standings of a group.
func (s *ServiceTarget) GroupResult(ctx context.Context, groupID string) (types.MatchResult, error) {
	return s.svc.GroupResult(ctx, groupID)
}
