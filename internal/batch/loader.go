package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Loaders turn a tabular source into an ordered job sequence.
//
// Expected columns (header row, case-insensitive): Number, Message, Image,
// Video, File, Schedule. Number and Message must be present as columns;
// everything else is optional. Row order is preserved and becomes Job.Index.

var ErrMissingColumns = errors.New("batch source must contain Number and Message columns")

const (
	colNumber   = "number"
	colMessage  = "message"
	colImage    = "image"
	colVideo    = "video"
	colFile     = "file"
	colSchedule = "schedule"
)

// LoadCSV reads a batch from a CSV file.
func LoadCSV(path string) ([]Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are fine, missing cells are empty facets

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read batch header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read batch row: %w", err)
		}
		rows = append(rows, rec)
	}
	return jobsFromRows(rows, cols), nil
}

// LoadXLSX reads a batch from an Excel workbook.
// An empty sheet name selects the workbook's first sheet.
func LoadXLSX(path, sheet string) ([]Job, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	if strings.TrimSpace(sheet) == "" {
		sheet = wb.GetSheetName(0)
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrMissingColumns
	}
	cols, err := mapColumns(rows[0])
	if err != nil {
		return nil, err
	}
	return jobsFromRows(rows[1:], cols), nil
}

// Load picks a loader by file extension (.csv, .xlsx).
func Load(path, sheet string) ([]Job, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return LoadXLSX(path, sheet)
	default:
		return LoadCSV(path)
	}
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[colNumber]; !ok {
		return nil, ErrMissingColumns
	}
	if _, ok := cols[colMessage]; !ok {
		return nil, ErrMissingColumns
	}
	return cols, nil
}

func jobsFromRows(rows [][]string, cols map[string]int) []Job {
	jobs := make([]Job, 0, len(rows))
	for i, row := range rows {
		j := Job{
			Index:     i,
			Recipient: cell(row, cols, colNumber),
			Schedule:  cell(row, cols, colSchedule),
		}
		if v := cell(row, cols, colMessage); v != "" {
			j.Facets = append(j.Facets, Facet{Kind: FacetText, Content: v, Status: StatusPending})
		}
		for _, a := range []struct {
			col  string
			kind FacetKind
		}{
			{colImage, FacetImage},
			{colVideo, FacetVideo},
			{colFile, FacetFile},
		} {
			if v := cell(row, cols, a.col); v != "" {
				j.Facets = append(j.Facets, Facet{Kind: a.kind, Path: v, Status: StatusPending})
			}
		}
		jobs = append(jobs, j)
	}
	return jobs
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
