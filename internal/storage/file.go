package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "blastbot/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.checkpoint.json    (overwritten via tmp + rename)
//   - <prefix>.deliveries.jsonl   (append-only JSON Lines)
//
// The checkpoint rename keeps concurrent readers from ever observing a
// partial value.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	checkpointPath string
	deliveriesFile *os.File
}

type checkpointDoc struct {
	Next      int       `json:"next"`
	UpdatedAt time.Time `json:"updated_at"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	df, err := os.OpenFile(prefix+".deliveries.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:            log,
		checkpointPath: prefix + ".checkpoint.json",
		deliveriesFile: df,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveriesFile != nil {
		err := s.deliveriesFile.Close()
		s.deliveriesFile = nil
		return err
	}
	return nil
}

func (s *fileStore) LoadCheckpoint(ctx context.Context) (int, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.checkpointPath)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var doc checkpointDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return 0, false, err
	}
	if doc.Next < 0 {
		return 0, false, nil
	}
	return doc.Next, true, nil
}

func (s *fileStore) SaveCheckpoint(ctx context.Context, next int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(checkpointDoc{Next: next, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	tmp := s.checkpointPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.checkpointPath)
}

func (s *fileStore) ClearCheckpoint(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.checkpointPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *fileStore) AppendDelivery(ctx context.Context, rec DeliveryRecord) error {
	_ = ctx
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliveriesFile == nil {
		return errors.New("deliveries file closed")
	}
	return json.NewEncoder(s.deliveriesFile).Encode(rec)
}
