package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Reference holds the per-condition and per-symptom lookup tables used to
// enrich a final diagnosis.  None of it participates in classification.
type Reference struct {
	Descriptions map[string]string
	Precautions  map[string][]string
	Severity     map[string]int
}

// Reference data file names under the data directory.
const (
	descriptionFile = "symptom_Description.csv"
	precautionFile  = "symptom_precaution.csv"
	severityFile    = "Symptom_severity.csv"
)

// LoadReference reads the three reference CSVs from dir.  A missing file is
// logged and skipped: the service still diagnoses, just without the
// corresponding enrichment.
func LoadReference(dir string) *Reference {
	ref := &Reference{
		Descriptions: make(map[string]string),
		Precautions:  make(map[string][]string),
		Severity:     make(map[string]int),
	}

	if err := readCSV(filepath.Join(dir, descriptionFile), func(row []string) {
		if len(row) > 1 {
			ref.Descriptions[row[0]] = row[1]
		}
	}); err != nil {
		slog.Warn("description table unavailable", "error", err)
	}

	if err := readCSV(filepath.Join(dir, precautionFile), func(row []string) {
		if len(row) > 4 {
			ref.Precautions[row[0]] = []string{row[1], row[2], row[3], row[4]}
		}
	}); err != nil {
		slog.Warn("precaution table unavailable", "error", err)
	}

	if err := readCSV(filepath.Join(dir, severityFile), func(row []string) {
		if len(row) > 1 {
			if w, err := strconv.Atoi(row[1]); err == nil {
				ref.Severity[row[0]] = w
			}
		}
	}); err != nil {
		slog.Warn("severity table unavailable", "error", err)
	}

	return ref
}

func readCSV(path string, each func(row []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		each(row)
	}
}
