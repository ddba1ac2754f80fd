package models

// ItemError records a non-fatal failure for one item of a batch.
type ItemError struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// IngestReport aggregates the outcome of a batch upsert. A report with a
// non-empty Errors list is a partial ingestion failure, not an error.
type IngestReport struct {
	Succeeded int         `json:"succeeded"`
	Skipped   int         `json:"skipped"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// Failed returns the number of items that failed.
func (r IngestReport) Failed() int {
	return len(r.Errors)
}

// Partial reports whether some items failed while others succeeded or were skipped.
func (r IngestReport) Partial() bool {
	return len(r.Errors) > 0 && (r.Succeeded > 0 || r.Skipped > 0)
}

// AddError appends a per-item failure.
func (r *IngestReport) AddError(item string, err error) {
	r.Errors = append(r.Errors, ItemError{Item: item, Error: err.Error()})
}
