package sentiment

import "time"

// DateLayout is how row dates are rendered.
const DateLayout = "2006-01-02"

// Row is one observation of the index.
type Row struct {
	Date   time.Time         `json:"date"`
	Values map[string]string `json:"values"`
}

// Table is a date-indexed series. Rows keep the order of the upstream response.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Header returns the index column followed by the value columns.
func (t *Table) Header() []string {
	return append([]string{"date"}, t.Columns...)
}

// Records returns every row as strings aligned with Header.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make([]string, 0, len(t.Columns)+1)
		record = append(record, row.Date.Format(DateLayout))
		for _, col := range t.Columns {
			record = append(record, row.Values[col])
		}
		records = append(records, record)
	}
	return records
}
