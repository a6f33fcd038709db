// Package refdata serves the static hotel reference data (room info,
// pricing, rules, FAQs) backing the voice agent's lookup endpoints. The
// files are plain CSVs returned verbatim; nothing here is interpreted.
package refdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Record is one CSV row keyed by column header.
type Record map[string]string

type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) Rooms() ([]Record, error)   { return l.load("Information.csv") }
func (l *Loader) Pricing() ([]Record, error) { return l.load("Pricing.csv") }
func (l *Loader) Rules() ([]Record, error)   { return l.load("Rules.csv") }
func (l *Loader) Queries() ([]Record, error) { return l.load("Queries.csv") }

func (l *Loader) load(name string) ([]Record, error) {
	f, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
