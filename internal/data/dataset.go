package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Dataset is the symptom/prognosis training matrix.  Columns holds the
// symptom feature columns in file order (the classifier feature order);
// the last CSV column is the prognosis label.
type Dataset struct {
	Columns []string
	Rows    [][]float64
	Labels  []string
}

// Exported CSVs sometimes carry duplicate columns suffixed ".1", ".2" by the
// tool that produced them.
var dupSuffix = regexp.MustCompile(`\.\d+$`)

// LoadDataset parses a training CSV.  Duplicate-suffixed column names are
// normalized and repeated columns dropped, keeping the first occurrence.
func LoadDataset(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d columns, want at least a symptom and a prognosis", len(header))
	}

	// keep[i] marks raw columns that survive de-duplication; the final raw
	// column is always the prognosis.
	nRaw := len(header)
	keep := make([]bool, nRaw)
	seen := make(map[string]bool)
	var columns []string
	for i := 0; i < nRaw-1; i++ {
		name := dupSuffix.ReplaceAllString(strings.TrimSpace(header[i]), "")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		keep[i] = true
		columns = append(columns, name)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no symptom columns in header")
	}

	d := &Dataset{Columns: columns}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(record) != nRaw {
			return nil, fmt.Errorf("line %d has %d fields, want %d", line, len(record), nRaw)
		}
		row := make([]float64, 0, len(columns))
		for i := 0; i < nRaw-1; i++ {
			if !keep[i] {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			row = append(row, v)
		}
		d.Rows = append(d.Rows, row)
		d.Labels = append(d.Labels, strings.TrimSpace(record[nRaw-1]))
	}
	if len(d.Rows) == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	return d, nil
}

// LoadDatasetFile loads a training CSV from disk.
func LoadDatasetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()
	return LoadDataset(f)
}

// ClassNames returns the distinct prognosis labels sorted lexicographically.
// This is the label encoding order the classifier is trained with.
func (d *Dataset) ClassNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, l := range d.Labels {
		if !seen[l] {
			seen[l] = true
			names = append(names, l)
		}
	}
	sort.Strings(names)
	return names
}

// EncodeLabels maps each row's prognosis to its index in ClassNames.
func (d *Dataset) EncodeLabels() ([]string, []int) {
	names := d.ClassNames()
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	y := make([]int, len(d.Labels))
	for i, l := range d.Labels {
		y[i] = index[l]
	}
	return names, y
}

// Profiles returns, for each prognosis label, the symptoms marked 1 in the
// FIRST row carrying that label, in column order.  Later rows with the same
// label are ignored on purpose: the guided-question selector is defined
// against the first matching row so question sets stay reproducible.
func (d *Dataset) Profiles() map[string][]string {
	profiles := make(map[string][]string)
	for i, label := range d.Labels {
		if _, ok := profiles[label]; ok {
			continue
		}
		var symptoms []string
		for j, v := range d.Rows[i] {
			if v == 1 {
				symptoms = append(symptoms, d.Columns[j])
			}
		}
		profiles[label] = symptoms
	}
	return profiles
}
