package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	logx "blastbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "run.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q) error: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) = %v, want nil store", driver, st)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.LoadCheckpoint(ctx); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v, want absent", ok, err)
	}

	if err := st.SaveCheckpoint(ctx, 7); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	next, ok, err := st.LoadCheckpoint(ctx)
	if err != nil || !ok || next != 7 {
		t.Fatalf("LoadCheckpoint = (%d, %v, %v), want (7, true, nil)", next, ok, err)
	}

	// Overwrite semantics.
	if err := st.SaveCheckpoint(ctx, 2); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	next, ok, _ = st.LoadCheckpoint(ctx)
	if !ok || next != 2 {
		t.Fatalf("LoadCheckpoint after overwrite = (%d, %v)", next, ok)
	}

	if err := st.ClearCheckpoint(ctx); err != nil {
		t.Fatalf("ClearCheckpoint: %v", err)
	}
	if _, ok, _ := st.LoadCheckpoint(ctx); ok {
		t.Fatal("checkpoint survived ClearCheckpoint")
	}
	// Clearing twice is fine.
	if err := st.ClearCheckpoint(ctx); err != nil {
		t.Fatalf("second ClearCheckpoint: %v", err)
	}
}

func TestCheckpointNoPartialWrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "run.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.SaveCheckpoint(ctx, 1); err != nil {
		t.Fatal(err)
	}
	// The temp file must not linger after a successful save.
	if _, err := os.Stat(filepath.Join(dir, "run.checkpoint.json.tmp")); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}
}

func TestAppendDelivery(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "run.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx := context.Background()
	recs := []DeliveryRecord{
		{RunID: "r1", JobIndex: 0, Recipient: "+201", Sent: true, Attempts: 1},
		{RunID: "r1", JobIndex: 1, Recipient: "+202", Sent: false, FailedFacets: []string{"text"}, Attempts: 2, Error: "boom"},
	}
	for _, r := range recs {
		if err := st.AppendDelivery(ctx, r); err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "run.deliveries.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []DeliveryRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r DeliveryRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad jsonl line: %v", err)
		}
		got = append(got, r)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].At.IsZero() {
		t.Fatal("AppendDelivery should stamp At")
	}
	if got[1].JobIndex != 1 || got[1].Sent || got[1].Error != "boom" {
		t.Fatalf("got[1] = %+v", got[1])
	}
}
