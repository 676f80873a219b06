package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/airquality/airquality"
)

const DefaultOutputFile = "latest_air_quality_data.csv"

// Table is the rectangular union of all device records, ready for export.
type Table struct {
	Columns []string
	Rows    []airquality.Record
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

func (t Table) Counts() (total, successful, failed int) {
	for _, row := range t.Rows {
		if row.Failed() {
			failed++
		} else {
			successful++
		}
	}
	return len(t.Rows), successful, failed
}

// Consolidate concatenates both vendors' records (a's first, both in their
// own order) and computes the column set: the priority columns in fixed
// order, then every other column seen in any record, sorted.
func Consolidate(a, b []airquality.Record) Table {
	rows := make([]airquality.Record, 0, len(a)+len(b))
	rows = append(rows, a...)
	rows = append(rows, b...)

	priority := map[string]bool{}
	for _, col := range airquality.PriorityColumns {
		priority[col] = true
	}

	seen := map[string]bool{}
	extras := []string{}
	for _, row := range rows {
		for col := range row {
			if !priority[col] && !seen[col] {
				seen[col] = true
				extras = append(extras, col)
			}
		}
	}
	sort.Strings(extras)

	columns := append([]string{}, airquality.PriorityColumns...)
	columns = append(columns, extras...)

	return Table{Columns: columns, Rows: rows}
}

// WriteCSV writes the table to path, truncating any existing file. Rows
// missing a column get an empty cell there.
func (t Table) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("failed to close %s: %s", path, err)
		}
	}()

	w := csv.NewWriter(file)

	if err := w.Write(t.Columns); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}

	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			cells[i] = airquality.FormatCell(row[col])
		}
		if err := w.Write(cells); err != nil {
			return errors.Wrap(err, "failed to write csv row")
		}
	}

	w.Flush()

	return errors.Wrap(w.Error(), "failed to flush csv")
}

// ConsolidateAndExport merges both record lists and writes them to
// outputFile. An empty combined list is a warning, not a failure: nothing
// gets written.
func ConsolidateAndExport(a, b []airquality.Record, outputFile string) error {
	table := Consolidate(a, b)
	if table.Empty() {
		log.Warn("no data to export")
		return nil
	}

	if err := table.WriteCSV(outputFile); err != nil {
		return err
	}

	total, successful, failed := table.Counts()
	fmt.Printf("\n✓ Data exported successfully to: %s\n", outputFile)
	fmt.Printf("  Total devices: %d\n", total)
	fmt.Printf("  Successful: %d\n", successful)
	fmt.Printf("  Failed: %d\n", failed)

	return nil
}
