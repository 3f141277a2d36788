// Package backend is the HTTP client for the profile backend. Callers treat
// any transport, timeout, or breaker-open failure the same way: fall back to
// the local cache.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"hostelcare/internal/model"
)

var ErrNotFound = errors.New("profile_not_found")

// SaveRejectedError carries the backend's own message for a rejected profile
// save so it can be shown to the user verbatim.
type SaveRejectedError struct {
	Status  int
	Message string
}

func (e *SaveRejectedError) Error() string {
	return fmt.Sprintf("profile save rejected (%d): %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "profile-backend",
		Interval: 60 * time.Second,
		Timeout:  5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		// 404s and validation rejections are the backend answering, not
		// the backend being down.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, ErrNotFound) {
				return true
			}
			var rejected *SaveRejectedError
			return errors.As(err, &rejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// GetProfile fetches the authoritative record for a subject.
func (c *Client) GetProfile(ctx context.Context, subjectID string) (model.ProfileRecord, error) {
	var record model.ProfileRecord
	err := c.do(ctx, http.MethodGet, "/profile/"+subjectID, nil, &record)
	return record, err
}

// CompleteProfile persists a profile save. 4xx responses become
// SaveRejectedError; the caller keeps its optimistic state either way.
func (c *Client) CompleteProfile(ctx context.Context, record model.ProfileRecord) (model.ProfileRecord, error) {
	var saved model.ProfileRecord
	path := "/profile/complete"
	if record.Role == model.RoleAdmin {
		path = "/admin/profile/complete"
	}
	err := c.do(ctx, http.MethodPost, path, record, &saved)
	return saved, err
}

// PatchAvatar back-fills a provider avatar the backend is missing.
func (c *Client) PatchAvatar(ctx context.Context, subjectID, avatarURL string) error {
	body := map[string]string{"avatarUrl": avatarURL}
	return c.do(ctx, http.MethodPatch, "/profile/"+subjectID+"/avatar", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, &SaveRejectedError{Status: resp.StatusCode, Message: errorMessage(data)}
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("backend returned %d", resp.StatusCode)
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	data, _ := result.([]byte)
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func errorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "request rejected"
}
