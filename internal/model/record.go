// Package model defines the donation record and run ledger types shared across packages.
package model

// Column name candidates for the fields the pipeline reads. Source files
// disagree on capitalization, so lookups try each spelling in order.
var (
	CityColumns   = []string{"CITY", "City"}
	PostalColumns = []string{"ZIP", "Zip", "zip"}
	StateColumns  = []string{"STATE", "State"}
)

// Record is one donation row: a mapping of column name to raw text that
// remembers the order columns appeared in the source header.
type Record struct {
	Columns []string
	Values  map[string]string
}

// NewRecord pairs a header with a data row. Short rows are padded with empty
// values; cells beyond the header are dropped.
func NewRecord(header, row []string) Record {
	r := Record{
		Columns: make([]string, 0, len(header)),
		Values:  make(map[string]string, len(header)),
	}
	for i, col := range header {
		if _, dup := r.Values[col]; dup {
			continue
		}
		val := ""
		if i < len(row) {
			val = row[i]
		}
		r.Columns = append(r.Columns, col)
		r.Values[col] = val
	}
	return r
}

// Get returns the first non-empty value among the named columns.
func (r Record) Get(names ...string) string {
	for _, n := range names {
		if v := r.Values[n]; v != "" {
			return v
		}
	}
	return ""
}

// Lookup returns the raw value of a column and whether the column exists.
func (r Record) Lookup(name string) (string, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// City returns the raw city text.
func (r Record) City() string { return r.Get(CityColumns...) }

// Postal returns the raw postal code text.
func (r Record) Postal() string { return r.Get(PostalColumns...) }

// State returns the raw state text.
func (r Record) State() string { return r.Get(StateColumns...) }

// Properties copies the record into a GeoJSON property map.
func (r Record) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(r.Columns))
	for _, c := range r.Columns {
		props[c] = r.Values[c]
	}
	return props
}

// Row returns the values in header order.
func (r Record) Row() []string {
	row := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		row[i] = r.Values[c]
	}
	return row
}
