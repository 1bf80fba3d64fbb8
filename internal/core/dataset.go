package core

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// LabRecord is one analytical sample row of a lab export.
// Records are created once per ingested file and never mutated afterwards.
type LabRecord struct {
	// ID is the 0-based row index in the source file.
	ID       int    `json:"id"`
	SeriesID string `json:"seriesId"`
	SampleID string `json:"sampleId"`
	IsRepeat bool   `json:"isRepeat"`

	// Results holds exactly one entry per dataset result header.
	// Missing values are empty strings, never absent keys.
	Results map[string]string `json:"results"`
}

// Value returns the trimmed raw value stored for header.
func (r LabRecord) Value(header string) string {
	return r.Results[header]
}

// HasValue reports whether the record has a non-empty value for header.
func (r LabRecord) HasValue(header string) bool {
	return r.Results[header] != ""
}

// ParsedDataset is the typed result of ingesting one lab export.
type ParsedDataset struct {
	FileName        string    `json:"fileName"`
	ImportTimestamp time.Time `json:"importTimestamp"`

	// ResultHeaders is sorted with German collation at ingestion time.
	// Consumers must preserve this order; grouping only reorders filtered views.
	ResultHeaders []string `json:"resultHeaders"`

	// Data is in original file row order.
	Data []LabRecord `json:"data"`
}

// Record looks up a record by its ID.
func (d *ParsedDataset) Record(id int) (LabRecord, bool) {
	for _, rec := range d.Data {
		if rec.ID == id {
			return rec, true
		}
	}
	return LabRecord{}, false
}

// Validate checks the invariants Ingest guarantees: unique headers, unique
// record IDs and one result per header in every record. Every violation is
// reported.
func (d *ParsedDataset) Validate() error {
	var result *multierror.Error

	headers := make(map[string]bool, len(d.ResultHeaders))
	for _, h := range d.ResultHeaders {
		if headers[h] {
			result = multierror.Append(result, fmt.Errorf("duplicate header %q", h))
		}
		headers[h] = true
	}

	ids := make(map[int]bool, len(d.Data))
	for _, rec := range d.Data {
		if ids[rec.ID] {
			result = multierror.Append(result, fmt.Errorf("duplicate record id %d", rec.ID))
		}
		ids[rec.ID] = true

		for h := range rec.Results {
			if !headers[h] {
				result = multierror.Append(result, fmt.Errorf("record %d: unknown header %q", rec.ID, h))
			}
		}
		for h := range headers {
			if _, ok := rec.Results[h]; !ok {
				result = multierror.Append(result, fmt.Errorf("record %d: no result for %q", rec.ID, h))
			}
		}
	}
	return result.ErrorOrNil()
}

// IngestStats summarizes an ingestion run for logging and metrics.
type IngestStats struct {
	RawRows     int
	DataRows    int
	SkippedRows int
	Headers     int
}
