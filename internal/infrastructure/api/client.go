package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opentill/terminal/pkg/apperror"
)

// Envelope is the server's uniform response shape. ErrorCode and Error carry
// "OK" on success.
type Envelope struct {
	ErrorCode string          `json:"errorCode"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

// RenewFunc re-authorizes the session and returns a fresh token. Set by the
// session service once credentials are available.
type RenewFunc func(ctx context.Context) (string, error)

// Client talks JSON-over-HTTP to the POS server: POST /api/<action> with
// body {"data": ...} (GET for pure reads). An `auth` error code triggers
// exactly one token renewal before the call is retried once; any other
// non-OK code is surfaced without retry.
type Client struct {
	baseURL string
	http    *http.Client
	probe   *http.Client
	log     zerolog.Logger

	mu    sync.RWMutex
	token string
	renew RenewFunc
}

// NewClient creates a server API client. timeout bounds normal calls; the
// liveness probe gets its own, much shorter bound.
func NewClient(baseURL string, timeout, probeTimeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		probe:   &http.Client{Timeout: probeTimeout},
		log:     log.With().Str("component", "api").Logger(),
	}
}

// SetToken stores the current session token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetRenewFunc installs the renewal hook used on auth failures.
func (c *Client) SetRenewFunc(fn RenewFunc) {
	c.mu.Lock()
	c.renew = fn
	c.mu.Unlock()
}

func (c *Client) renewFunc() RenewFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renew
}

// Hello probes the liveness endpoint with the short probe timeout.
func (c *Client) Hello(ctx context.Context) error {
	return c.do(ctx, c.probe, http.MethodGet, "hello", nil, nil, false)
}

// Get performs a pure read action.
func (c *Client) Get(ctx context.Context, action string, out any) error {
	return c.do(ctx, c.http, http.MethodGet, action, nil, out, true)
}

// Post performs a mutating action with the {"data": ...} body convention.
func (c *Client) Post(ctx context.Context, action string, payload, out any) error {
	return c.do(ctx, c.http, http.MethodPost, action, payload, out, true)
}

func (c *Client) do(ctx context.Context, client *http.Client, method, action string, payload, out any, allowRenew bool) error {
	err := c.once(ctx, client, method, action, payload, out)
	if err == nil || !allowRenew || !apperror.IsKind(err, apperror.KindAuth) {
		return err
	}

	renew := c.renewFunc()
	if renew == nil {
		return err
	}

	c.log.Debug().Str("action", action).Msg("session rejected, attempting token renewal")
	token, renewErr := renew(ctx)
	if renewErr != nil {
		return apperror.NewAuthError(fmt.Sprintf("token renewal failed: %v", renewErr))
	}
	c.SetToken(token)

	// One retry only. A second auth rejection surfaces to the caller.
	return c.once(ctx, client, method, action, payload, out)
}

func (c *Client) once(ctx context.Context, client *http.Client, method, action string, payload, out any) error {
	var body io.Reader
	if method != http.MethodGet {
		wrapped := map[string]any{"data": payload}
		encoded, err := json.Marshal(wrapped)
		if err != nil {
			return apperror.NewRequestError("failed to encode request payload", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/"+action, body)
	if err != nil {
		return apperror.NewRequestError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperror.NewConnectionError(fmt.Sprintf("request %s failed", action), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.NewConnectionError(fmt.Sprintf("reading %s response failed", action), err)
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return apperror.NewRequestError(fmt.Sprintf("unparseable response from %s", action), err)
	}

	if envelope.ErrorCode != "OK" {
		return c.classify(action, &envelope)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return apperror.NewRequestError(fmt.Sprintf("unparseable data from %s", action), err)
		}
	}
	return nil
}

func (c *Client) classify(action string, envelope *Envelope) error {
	switch envelope.ErrorCode {
	case "auth":
		return apperror.NewAuthError(envelope.Error)
	case "validation", "invalid":
		return &apperror.AppError{
			Kind:    apperror.KindValidation,
			Code:    envelope.ErrorCode,
			Message: envelope.Error,
		}
	default:
		c.log.Warn().Str("action", action).Str("code", envelope.ErrorCode).
			Str("error", envelope.Error).Msg("server rejected request")
		return apperror.NewServerError(envelope.ErrorCode, envelope.Error)
	}
}
