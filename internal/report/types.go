// Package report implements the asynchronous report lifecycle engine:
// submit a report job, poll until a terminal status, download and decompress
// the payload, and normalize rows against a declared schema with an
// incremental watermark.
package report

import (
	"time"
)

// Status is a report job lifecycle state.
type Status string

// Provider-side statuses plus the two local terminal outcomes. FAILED marks a
// locally-detected defect (completed without URL, attempts exhausted on
// transport errors); TIMEOUT marks an exhausted attempt budget with the job
// still pending.
const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailure    Status = "FAILURE"
	StatusCancelled  Status = "CANCELLED"
	StatusTimeout    Status = "TIMEOUT"
	StatusFailed     Status = "FAILED"
)

// IsTerminal reports whether no further polling can change the status.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailure, StatusCancelled, StatusTimeout, StatusFailed:
		return true
	case StatusPending, StatusInProgress:
		return false
	default:
		return false
	}
}

// Request is an immutable report-creation request. Built once by the
// submitter; never modified after submission.
type Request struct {
	Name      string
	StartDate string
	EndDate   string

	AdProduct    string
	GroupBy      []string
	Columns      []string
	ReportTypeID string
	TimeUnit     string
	Format       string
	Filters      []Filter
}

// Filter restricts report rows to entities matching the given field values.
type Filter struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}

// Job tracks one submitted report. The reportId is server-assigned, or
// recovered from a duplicate-conflict response (a 409/425 aliases an existing
// job rather than creating a new one). DownloadURL is populated if and only
// if Status == StatusCompleted.
type Job struct {
	ReportID    string
	Status      Status
	DownloadURL string
}

// FieldKind is the semantic type of a schema field, driving numeric coercion
// during normalization.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindInteger FieldKind = "integer"
	KindNumber  FieldKind = "number"
)

// Field declares one schema property. All fields are nullable: coercion
// failures and missing values normalize to nil rather than failing the
// record.
type Field struct {
	Name   string
	Kind   FieldKind
	Format string // "date" or "date-time" for string fields, else empty
}

// Config parameterizes the report engine for one report variant. Concrete
// "streams" differ only in data, so a single engine consumes these values
// instead of per-variant subtypes.
type Config struct {
	// Name identifies the stream in emitted records, watermarks and logs.
	Name string

	// NamePrefix seeds the generated, globally-unique report name.
	NamePrefix string

	AdProduct    string
	GroupBy      []string
	Columns      []string
	ReportTypeID string
	TimeUnit     string
	Format       string
	Filters      []Filter

	// Schema is the declared field table for normalization.
	Schema []Field

	// PrimaryKeys identify a row downstream (entity ids + date).
	PrimaryKeys []string

	// ReplicationKey is the date column compared against the watermark.
	// Empty disables watermark filtering for the stream.
	ReplicationKey string

	// LookbackDays bounds the report window: [today-LookbackDays, today].
	LookbackDays int
}

// Window computes the report date range for a submission at now.
func (c Config) Window(now time.Time) (startDate, endDate string) {
	end := now.UTC()
	start := end.AddDate(0, 0, -c.LookbackDays)

	return start.Format("2006-01-02"), end.Format("2006-01-02")
}
