package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"blastbot/internal/batch"
	"blastbot/internal/retry"
)

// GatewayConfig configures the HTTP message-gateway backend.
//
// WaitTimeout bounds each delivery attempt (the original "wait_timeout"
// knob); RatePerMin paces requests so the gateway account is not flagged.
type GatewayConfig struct {
	BaseURL     string
	Token       string
	WaitTimeout time.Duration
	RatePerMin  int
}

// gateway talks to a WhatsApp-style HTTP gateway:
//
//	GET  /v1/session          session/login state
//	POST /v1/messages         {"to": ..., "text": ...}
//	POST /v1/media            multipart: to, kind, file
type gateway struct {
	cfg     GatewayConfig
	client  *http.Client
	limiter *rate.Limiter
}

func newGateway(cfg GatewayConfig) (*gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("gateway.base_url is required")
	}
	cfg.BaseURL = base

	timeout := cfg.WaitTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMin)/60.0), 1)
	}

	return &gateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}, nil
}

func (g *gateway) EnsureSessionReady(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/v1/session", nil)
	if err != nil {
		return &SessionError{Err: err}
	}
	g.auth(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return &SessionError{Err: err}
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return &SessionError{Err: fmt.Errorf("gateway session state %d", resp.StatusCode)}
	}
	return nil
}

func (g *gateway) SendText(ctx context.Context, recipient, content string) error {
	if err := g.pace(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{"to": recipient, "text": content})
	if err != nil {
		return retry.NoRetry(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return retry.NoRetry(err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.auth(req)
	return g.send(req)
}

func (g *gateway) SendAttachment(ctx context.Context, recipient string, kind batch.FacetKind, path string) error {
	if err := g.pace(ctx); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		// Missing attachment file: retrying won't conjure it up.
		return retry.NoRetry(fmt.Errorf("attachment %s: %w", path, err))
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("to", recipient)
	_ = mw.WriteField("kind", string(kind))
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/media", &buf)
	if err != nil {
		return retry.NoRetry(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	g.auth(req)
	return g.send(req)
}

func (g *gateway) Close() error { return nil }

func (g *gateway) auth(req *http.Request) {
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
}

func (g *gateway) pace(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

func (g *gateway) send(req *http.Request) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("gateway responded %d", resp.StatusCode)
	default:
		// Other 4xx means the payload itself is rejected; retrying the
		// same request cannot succeed.
		return retry.NoRetry(fmt.Errorf("gateway rejected request: %d", resp.StatusCode))
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
