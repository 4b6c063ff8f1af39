// Package progress delivers best-effort status updates to an external
// callback URL, keyed by session id. Failures are logged and swallowed;
// a broken progress callback must never interrupt the pipeline.
package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/parchment-labs/docworker/pkg/logger"
)

// Status is the invocation-level state reported in a progress update.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Update is the body POSTed to {callbackURL}/{sessionId}.
type Update struct {
	SessionID string      `json:"sessionId"`
	ImageID   int64       `json:"imageId"`
	Status    Status      `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Reporter posts updates over HTTP with a bounded per-call timeout. No
// ecosystem HTTP client library appears in the retrieved reference repos
// (only server frameworks: gin, echo), so this one piece of ambient I/O is
// deliberately built on net/http rather than imported.
type Reporter struct {
	callbackURL string
	enabled     bool
	client      *http.Client
}

// New builds a Reporter. When enabled is false, Update is a no-op — callers
// still get a uniform interface regardless of configuration.
func New(callbackURL string, enabled bool, timeout time.Duration) *Reporter {
	return &Reporter{
		callbackURL: callbackURL,
		enabled:     enabled,
		client:      &http.Client{Timeout: timeout},
	}
}

// Update delivers one status update. Errors are logged, never returned: the
// pipeline must proceed regardless of callback delivery.
func (r *Reporter) Update(ctx context.Context, imageID int64, sessionID string, status Status, progressPct int, message string, data interface{}) {
	if !r.enabled || r.callbackURL == "" || sessionID == "" {
		return
	}
	update := Update{
		SessionID: sessionID,
		ImageID:   imageID,
		Status:    status,
		Progress:  progressPct,
		Message:   message,
		Timestamp: time.Now(),
		Data:      data,
	}
	body, err := json.Marshal(update)
	if err != nil {
		logger.Errorf("progress: marshal update for session %s: %v", sessionID, err)
		return
	}

	url := fmt.Sprintf("%s/%s", r.callbackURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		logger.Errorf("progress: build request for session %s: %v", sessionID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Warnf("progress: callback delivery failed for session %s: %v", sessionID, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		logger.Warnf("progress: callback for session %s returned status %d", sessionID, resp.StatusCode)
	}
}
