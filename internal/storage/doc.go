package storage

// Package storage persists the run checkpoint and the per-job delivery
// audit trail.
//
// It currently supports:
//   - "file": dependency-free backend (checkpoint json + deliveries jsonl)
//   - "sqlite": SQLite database file (optional build tag)
