package models

import "fmt"

// JobResult is the closed tagged union of worker outputs, discriminated by
// Type. The worker is external and untrusted, so the payload is validated
// against the job's type at the service boundary before it is persisted.
type JobResult struct {
	Type string `json:"type"`

	// Type == query
	Answer string `json:"answer,omitempty"`

	// Type == analysis
	Summary    string   `json:"summary,omitempty"`
	Findings   []string `json:"findings,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`

	// Type == report
	Title    string          `json:"title,omitempty"`
	Sections []ReportSection `json:"sections,omitempty"`
}

type ReportSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Validate checks that the result payload matches the job's type and carries
// the fields that type requires.
func (r *JobResult) Validate(jobType string) error {
	if r == nil {
		return fmt.Errorf("result is required")
	}
	if r.Type != jobType {
		return fmt.Errorf("result type %q does not match job type %q", r.Type, jobType)
	}
	switch r.Type {
	case JobTypeQuery:
		if r.Answer == "" {
			return fmt.Errorf("query result requires answer")
		}
	case JobTypeAnalysis:
		if r.Summary == "" {
			return fmt.Errorf("analysis result requires summary")
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			return fmt.Errorf("analysis confidence must be in [0,1], got %v", r.Confidence)
		}
	case JobTypeReport:
		if r.Title == "" || len(r.Sections) == 0 {
			return fmt.Errorf("report result requires title and at least one section")
		}
	default:
		return fmt.Errorf("unknown result type %q", r.Type)
	}
	return nil
}
