package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blastbot/internal/batch"
	logx "blastbot/pkg/logx"
)

// ScriptConfig configures the dry-run backend.
//
// FailMatching makes sends to recipients containing the substring fail,
// which is handy for rehearsing retry and failure paths without a gateway.
type ScriptConfig struct {
	Log          logx.Logger
	FailMatching string
	SendDelay    time.Duration
}

// script is a no-network executor: it logs every attempt and succeeds
// unless the recipient matches the configured failure pattern.
type script struct {
	cfg ScriptConfig
	log logx.Logger
}

func newScript(cfg ScriptConfig) *script {
	log := cfg.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &script{cfg: cfg, log: log}
}

func (s *script) EnsureSessionReady(ctx context.Context) error {
	_ = ctx
	return nil
}

func (s *script) SendText(ctx context.Context, recipient, content string) error {
	if err := s.simulate(ctx, recipient); err != nil {
		return err
	}
	s.log.Info("dry-run text", logx.String("to", recipient), logx.Int("len", len(content)))
	return nil
}

func (s *script) SendAttachment(ctx context.Context, recipient string, kind batch.FacetKind, path string) error {
	if err := s.simulate(ctx, recipient); err != nil {
		return err
	}
	s.log.Info("dry-run attachment", logx.String("to", recipient), logx.String("kind", string(kind)), logx.String("path", path))
	return nil
}

func (s *script) Close() error { return nil }

func (s *script) simulate(ctx context.Context, recipient string) error {
	if s.cfg.SendDelay > 0 {
		tmr := time.NewTimer(s.cfg.SendDelay)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return ctx.Err()
		case <-tmr.C:
		}
	}
	if s.cfg.FailMatching != "" && strings.Contains(recipient, s.cfg.FailMatching) {
		return fmt.Errorf("dry-run failure for %s", recipient)
	}
	return nil
}
