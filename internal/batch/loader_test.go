package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "Number,Message,Image,Video,File,Schedule\n"+
		"0100,hello,,,,\n"+
		"+49170,hi there,pic.png,,doc.pdf,14:30:00\n"+
		"0200,,,,,\n")

	jobs, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV error: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len(jobs) = %d, want 3", len(jobs))
	}

	if jobs[0].Index != 0 || jobs[1].Index != 1 || jobs[2].Index != 2 {
		t.Fatalf("indices not in row order: %+v", jobs)
	}
	if len(jobs[0].Facets) != 1 || jobs[0].Facets[0].Kind != FacetText {
		t.Fatalf("jobs[0] facets = %+v", jobs[0].Facets)
	}
	if jobs[0].Facets[0].Status != StatusPending {
		t.Fatalf("new facet status = %s, want pending", jobs[0].Facets[0].Status)
	}

	got := jobs[1]
	if got.Schedule != "14:30:00" {
		t.Fatalf("schedule = %q", got.Schedule)
	}
	if len(got.Facets) != 3 {
		t.Fatalf("jobs[1] facets = %+v", got.Facets)
	}
	if got.Facets[0].Kind != FacetText || got.Facets[1].Kind != FacetImage || got.Facets[2].Kind != FacetFile {
		t.Fatalf("facet kinds = %v %v %v", got.Facets[0].Kind, got.Facets[1].Kind, got.Facets[2].Kind)
	}
	if got.Facets[1].Path != "pic.png" {
		t.Fatalf("image path = %q", got.Facets[1].Path)
	}

	// Empty message cell means no text facet at all.
	if len(jobs[2].Facets) != 0 {
		t.Fatalf("jobs[2] facets = %+v, want none", jobs[2].Facets)
	}
}

func TestLoadCSVHeaderCaseInsensitive(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "NUMBER,message\n0100,yo\n")
	jobs, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Recipient != "0100" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestLoadCSVMissingColumns(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "Number,Body\n0100,yo\n")
	_, err := LoadCSV(path)
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
}

func TestLoadCSVRaggedRows(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, "Number,Message,Image\n0100,hello\n")
	jobs, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV error: %v", err)
	}
	if len(jobs) != 1 || len(jobs[0].Facets) != 1 {
		t.Fatalf("jobs = %+v", jobs)
	}
}
