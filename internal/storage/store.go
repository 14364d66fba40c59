package storage

import (
	"context"

	"tgmdiversity/internal/model"
	"tgmdiversity/internal/summary"
)

// ReportRecord is one stored analysis.
type ReportRecord struct {
	model.VersionedRecord
	ID           string         `json:"id"`
	Label        string         `json:"label,omitempty"`
	Source       string         `json:"source,omitempty"`
	CreatedAtUTC string         `json:"created_at_utc"`
	Report       summary.Report `json:"report"`
}

// ReportInfo is the listing view of a ReportRecord.
type ReportInfo struct {
	ID           string `json:"id"`
	Label        string `json:"label,omitempty"`
	Source       string `json:"source,omitempty"`
	CreatedAtUTC string `json:"created_at_utc"`
	Cohorts      int    `json:"cohorts"`
	Records      int    `json:"records"`
}

// Store persists analysis reports and their summary tables.
type Store interface {
	Init(ctx context.Context) error
	SaveReport(ctx context.Context, record ReportRecord) error
	GetReport(ctx context.Context, id string) (ReportRecord, bool, error)
	// ListReports returns every stored report, newest first.
	ListReports(ctx context.Context) ([]ReportInfo, error)
}

func (r ReportRecord) Info() ReportInfo {
	return ReportInfo{
		ID:           r.ID,
		Label:        r.Label,
		Source:       r.Source,
		CreatedAtUTC: r.CreatedAtUTC,
		Cohorts:      len(r.Report.Cohorts),
		Records:      r.Report.Diagnostics.TotalRecords,
	}
}
