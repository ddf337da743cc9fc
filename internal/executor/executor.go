// Package executor defines the delivery capability the dispatcher drives.
//
// A backend performs one delivery attempt per call; the dispatcher owns
// retries, pacing and checkpointing. Implementations must tolerate a
// repeated call for the same facet (retries re-invoke them).
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blastbot/internal/batch"
)

// Executor performs delivery attempts for one job facet at a time.
type Executor interface {
	// EnsureSessionReady is called before each job so the backend can
	// re-establish a lost session. Failure is fatal for the run and is
	// surfaced as a *SessionError, never retried by the dispatcher.
	EnsureSessionReady(ctx context.Context) error

	SendText(ctx context.Context, recipient, content string) error
	SendAttachment(ctx context.Context, recipient string, kind batch.FacetKind, path string) error

	// Close releases any held backend resources at the end of a run.
	Close() error
}

// SessionError marks a lost or unestablishable delivery session.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string { return fmt.Sprintf("session: %v", e.Err) }
func (e *SessionError) Unwrap() error { return e.Err }

// IsSession reports whether err carries a *SessionError.
func IsSession(err error) bool {
	var se *SessionError
	return errors.As(err, &se)
}

// Open builds the configured backend. An unknown backend name is a
// configuration error and fatal before the run starts.
func Open(cfg Config) (Executor, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "gateway":
		return newGateway(cfg.Gateway)
	case "script", "dry-run":
		return newScript(cfg.Script), nil
	default:
		return nil, fmt.Errorf("unknown executor backend %q", cfg.Backend)
	}
}

// Config selects and configures the delivery backend.
type Config struct {
	Backend string
	Gateway GatewayConfig
	Script  ScriptConfig
}
