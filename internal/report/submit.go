package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/adstream-io/adstream/internal/adsapi"
)

const (
	reportsPath = "/reporting/reports"

	// Vendor media type for report submission; status checks use the
	// matching getasyncreportresponse type (see poller.go).
	createMediaType = "application/vnd.createasyncreportrequest.v3+json"

	apiVersion = "v3"

	// nameSuffixLen truncates the random uuid appended to report names.
	// Combined with the second-resolution timestamp, collisions within one
	// process are practically impossible.
	nameSuffixLen = 8
)

// duplicateIDPattern extracts an existing report ID from the provider's
// duplicate-request error text. Coupling to human-readable message text is
// fragile; kept as a best-effort fallback until the provider exposes a
// structured error field.
var duplicateIDPattern = regexp.MustCompile(`(?i)duplicate\s+of\s*:\s*([a-f0-9\-]{36})`)

// Submitter builds and submits report-creation requests.
type Submitter struct {
	client *adsapi.Client
	logger *slog.Logger

	// now and newSuffix are injectable for deterministic tests.
	now       func() time.Time
	newSuffix func() string
}

// NewSubmitter creates a Submitter on the shared API client.
func NewSubmitter(client *adsapi.Client, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Submitter{
		client: client,
		logger: logger,
		now:    time.Now,
		newSuffix: func() string {
			return uuid.NewString()[:nameSuffixLen]
		},
	}
}

// BuildRequest computes the date window and generates a globally-unique
// report name for one submission of cfg.
func (s *Submitter) BuildRequest(cfg Config) Request {
	startDate, endDate := cfg.Window(s.now())

	name := fmt.Sprintf("%s_%s_to_%s_%s_%s",
		cfg.NamePrefix, startDate, endDate, s.now().UTC().Format("20060102150405"), s.newSuffix())

	return Request{
		Name:         name,
		StartDate:    startDate,
		EndDate:      endDate,
		AdProduct:    cfg.AdProduct,
		GroupBy:      cfg.GroupBy,
		Columns:      cfg.Columns,
		ReportTypeID: cfg.ReportTypeID,
		TimeUnit:     cfg.TimeUnit,
		Format:       cfg.Format,
		Filters:      cfg.Filters,
	}
}

// Submit posts the report configuration for one profile and resolves the
// resulting report ID.
//
// Response handling:
//   - 2xx with a reportId: a fresh PENDING job.
//   - 409/425: the provider considers this a duplicate request; the body is
//     scanned for the existing report's UUID and that job is aliased. A
//     duplicate response without a recoverable ID fails with
//     ErrDuplicateUnresolved.
//   - anything else, or 2xx without a reportId: CreationError with the
//     response body.
func (s *Submitter) Submit(ctx context.Context, cfg Config, profileID string) (*Job, error) {
	request := s.BuildRequest(cfg)

	payload := map[string]any{
		"name":          request.Name,
		"startDate":     request.StartDate,
		"endDate":       request.EndDate,
		"configuration": buildConfiguration(request),
	}

	req := adsapi.Request{
		Method:      http.MethodPost,
		Path:        reportsPath,
		ProfileID:   profileID,
		ContentType: createMediaType,
		Accept:      createMediaType,
		Body:        payload,
		Header:      http.Header{adsapi.HeaderAPIVersion: {apiVersion}},
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("submitting report %s: %w", cfg.Name, err)
	}

	body := adsapi.DrainBody(resp)

	if resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusTooEarly {
		return s.resolveDuplicate(cfg, body)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		s.client.LogFailedRequest(req, resp, body)

		return nil, &CreationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var created struct {
		ReportID string `json:"reportId"`
	}

	if err := json.Unmarshal(body, &created); err != nil || created.ReportID == "" {
		s.client.LogFailedRequest(req, resp, body)

		return nil, &CreationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	s.logger.Info("Created report",
		slog.String("stream", cfg.Name),
		slog.String("report_id", created.ReportID),
		slog.String("report_name", request.Name),
	)

	return &Job{ReportID: created.ReportID, Status: StatusPending}, nil
}

// resolveDuplicate aliases the existing job named in a duplicate-request
// response body. Some provider deployments return the existing reportId as a
// structured field; others only mention it in the error detail text.
func (s *Submitter) resolveDuplicate(cfg Config, body []byte) (*Job, error) {
	var existing struct {
		ReportID string `json:"reportId"`
	}

	if err := json.Unmarshal(body, &existing); err == nil && existing.ReportID != "" {
		s.logger.Info("Recovered duplicate report",
			slog.String("stream", cfg.Name),
			slog.String("report_id", existing.ReportID),
		)

		return &Job{ReportID: existing.ReportID, Status: StatusPending}, nil
	}

	match := duplicateIDPattern.FindSubmatch(body)
	if match == nil {
		s.logger.Error("Duplicate report response without report ID",
			slog.String("stream", cfg.Name),
			slog.String("body", string(body)),
		)

		return nil, fmt.Errorf("%w: %s", ErrDuplicateUnresolved, string(body))
	}

	reportID := string(match[1])

	s.logger.Info("Recovered duplicate report",
		slog.String("stream", cfg.Name),
		slog.String("report_id", reportID),
	)

	return &Job{ReportID: reportID, Status: StatusPending}, nil
}

func buildConfiguration(request Request) map[string]any {
	configuration := map[string]any{
		"adProduct":    request.AdProduct,
		"groupBy":      request.GroupBy,
		"columns":      request.Columns,
		"reportTypeId": request.ReportTypeID,
		"timeUnit":     request.TimeUnit,
		"format":       request.Format,
	}

	if len(request.Filters) > 0 {
		configuration["filters"] = request.Filters
	}

	return configuration
}
