package models

import "time"

// ReportStatus is the lifecycle state of a MonthlyReport.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusSubmitted ReportStatus = "submitted"
	ReportStatusProcessed ReportStatus = "processed"
)

// MonthlyReport holds one church's income and expense lines for a month.
// The allocation columns are written when the report is processed.
type MonthlyReport struct {
	Base
	ChurchID string       `gorm:"type:uuid;not null;uniqueIndex:idx_report_period" json:"church_id"`
	Month    int          `gorm:"not null;uniqueIndex:idx_report_period" json:"month"`
	Year     int          `gorm:"not null;uniqueIndex:idx_report_period" json:"year"`
	Status   ReportStatus `gorm:"not null;default:'draft'" json:"status"`
	Notes    string       `json:"notes,omitempty"`

	NationalFund10  int64 `gorm:"type:bigint;not null;default:0" json:"fondo_nacional_10_percent"`
	NationalFund100 int64 `gorm:"type:bigint;not null;default:0" json:"fondo_nacional_100_percent"`
	NationalTotal   int64 `gorm:"type:bigint;not null;default:0" json:"fondo_nacional_total"`
	LocalAvailable  int64 `gorm:"type:bigint;not null;default:0" json:"disponible_local"`
	TotalExpenses   int64 `gorm:"type:bigint;not null;default:0" json:"total_gastos"`
	PastoralSalary  int64 `gorm:"type:bigint;not null;default:0" json:"salario_pastoral"`

	CreatedBy   string  `gorm:"type:uuid" json:"created_by"`
	ProcessedBy *string `gorm:"type:uuid" json:"processed_by,omitempty"`

	Lines  []ReportLine `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	Church *Church      `gorm:"foreignKey:ChurchID" json:"church,omitempty"`
}

// ReportLine is one dated income or expense amount of a monthly report.
// Bucket names the allocation category (see the allocation package).
type ReportLine struct {
	Base
	ReportID    string     `gorm:"type:uuid;not null;index" json:"report_id"`
	LineType    LineType   `gorm:"not null" json:"line_type"`
	Bucket      string     `gorm:"not null" json:"bucket"`
	Description string     `json:"description,omitempty"`
	Amount      int64      `gorm:"type:bigint;not null" json:"amount"`
	Date        *time.Time `json:"date,omitempty"`
}
