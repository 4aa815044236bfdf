// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the access level of an identity.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// SafetyLevel grades handling risk of a classified item.
type SafetyLevel string

const (
	SafetyLow    SafetyLevel = "low"
	SafetyMedium SafetyLevel = "medium"
	SafetyHigh   SafetyLevel = "high"
)

// ReusabilityLabel buckets the derived reusability score.
type ReusabilityLabel string

const (
	HighlyReusable ReusabilityLabel = "HighlyReusable"
	Moderate       ReusabilityLabel = "Moderate"
	NonReusable    ReusabilityLabel = "NonReusable"
)

// ReportType selects the fixed schema of a report's content.
type ReportType string

const (
	ReportClassification ReportType = "classification"
	ReportSummary        ReportType = "summary"
	ReportAnalysis       ReportType = "analysis"
	ReportUploaded       ReportType = "uploaded"
)

// ReportStatus tracks report generation progress.
type ReportStatus string

const (
	StatusProcessing ReportStatus = "processing"
	StatusCompleted  ReportStatus = "completed"
	StatusFailed     ReportStatus = "failed"
)

// NotificationKind classifies a notification for UI messaging.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
	NotifyWarning NotificationKind = "warning"
)

// ExportFormat selects the exporter output.
type ExportFormat string

const (
	FormatPDF    ExportFormat = "pdf"
	FormatCSV    ExportFormat = "csv"
	FormatSlides ExportFormat = "slides"
)

// Identity is a registered account. Credentials are argon2id hashed with a
// per-identity salt and never stored in plaintext.
type Identity struct {
	ID              uuid.UUID `json:"id"`
	DisplayName     string    `json:"displayName"`
	Email           string    `json:"email"` // unique
	Role            Role      `json:"role"`
	PwdHash         []byte    `json:"-"`
	SaltAuth        []byte    `json:"-"`
	ClaimVer        int64     `json:"-"` // bumped on every claim re-issue; stale claims are rejected
	ItemsClassified int       `json:"itemsClassified"`
	ReportsCreated  int       `json:"reportsCreated"`
	CreatedAt       time.Time `json:"createdAt"`
	LastLoginAt     time.Time `json:"lastLoginAt"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// GeoPoint annotates where an item was classified.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ClassificationRecord is one logged classification result. Immutable after
// creation except for deletion; score and label are always derived by the
// store, never taken from the caller.
type ClassificationRecord struct {
	ID                 uuid.UUID        `json:"id"`
	OwnerID            uuid.UUID        `json:"ownerId"`
	ItemName           string           `json:"itemName"`
	Category           string           `json:"category"`
	HazardousMaterials []string         `json:"hazardousMaterials"`
	Confidence         float64          `json:"confidence"` // percent, [0,100]
	SafetyLevel        SafetyLevel      `json:"safetyLevel"`
	ReusabilityScore   int              `json:"reusabilityScore"`
	ReusabilityLabel   ReusabilityLabel `json:"reusabilityLabel"`
	Recommendations    []string         `json:"recommendations"`
	Location           *GeoPoint        `json:"location,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
}

func (r ClassificationRecord) Key() uuid.UUID     { return r.ID }
func (r ClassificationRecord) Owner() uuid.UUID   { return r.OwnerID }
func (r ClassificationRecord) Shared() bool       { return false }
func (r ClassificationRecord) Created() time.Time { return r.CreatedAt }

// Report is a derived document over classification data. Mutable by owner
// or admin; readable by anyone when public.
type Report struct {
	ID            uuid.UUID     `json:"id"`
	OwnerID       uuid.UUID     `json:"ownerId"`
	Title         string        `json:"title"`
	Type          ReportType    `json:"type"`
	Content       ReportContent `json:"content"`
	Status        ReportStatus  `json:"status"`
	Tags          []string      `json:"tags"`
	IsPublic      bool          `json:"isPublic"`
	DownloadCount int           `json:"downloadCount"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (r Report) Key() uuid.UUID     { return r.ID }
func (r Report) Owner() uuid.UUID   { return r.OwnerID }
func (r Report) Shared() bool       { return r.IsPublic }
func (r Report) Created() time.Time { return r.CreatedAt }

// Owned is the common surface of records scoped to a single owner.
type Owned interface {
	Key() uuid.UUID
	Owner() uuid.UUID
	Shared() bool
	Created() time.Time
}

// ReportContent is a tagged variant: exactly one branch may be set and it
// must match the report's Type.
type ReportContent struct {
	Classification *ClassificationContent `json:"classification,omitempty"`
	Summary        *SummaryContent        `json:"summary,omitempty"`
	Analysis       *AnalysisContent       `json:"analysis,omitempty"`
	Uploaded       *UploadedContent       `json:"uploaded,omitempty"`
}

// Branch returns the type tag of the populated branch, or "" when the
// variant is empty or has more than one branch set.
func (c ReportContent) Branch() ReportType {
	var (
		tag ReportType
		n   int
	)
	if c.Classification != nil {
		tag, n = ReportClassification, n+1
	}
	if c.Summary != nil {
		tag, n = ReportSummary, n+1
	}
	if c.Analysis != nil {
		tag, n = ReportAnalysis, n+1
	}
	if c.Uploaded != nil {
		tag, n = ReportUploaded, n+1
	}
	if n != 1 {
		return ""
	}
	return tag
}

// ClassificationContent references the records a report was built from.
type ClassificationContent struct {
	RecordIDs []uuid.UUID `json:"recordIds"`
	Summary   string      `json:"summary"`
}

// SummaryContent is an aggregate snapshot over a period.
type SummaryContent struct {
	PeriodStart    time.Time      `json:"periodStart"`
	PeriodEnd      time.Time      `json:"periodEnd"`
	TotalItems     int            `json:"totalItems"`
	HazardousItems int            `json:"hazardousItems"`
	Categories     map[string]int `json:"categories"`
}

// AnalysisContent carries free-form findings.
type AnalysisContent struct {
	Findings  []string `json:"findings"`
	Narrative string   `json:"narrative"`
}

// UploadedContent describes an externally uploaded document.
type UploadedContent struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// ClassificationOutcome is what the classifier collaborator returns for an
// image; the store turns it into a ClassificationRecord.
type ClassificationOutcome struct {
	ItemName           string      `json:"itemName"`
	Category           string      `json:"category"`
	HazardousMaterials []string    `json:"hazardousMaterials"`
	Confidence         float64     `json:"confidence"`
	SafetyLevel        SafetyLevel `json:"safetyLevel"`
	Recommendations    []string    `json:"recommendations"`
}

// ClassificationDraft is caller input for creating a record. Note the
// absence of score/label fields: those are derived on create.
type ClassificationDraft struct {
	ItemName           string      `json:"itemName" validate:"required"`
	Category           string      `json:"category" validate:"required"`
	HazardousMaterials []string    `json:"hazardousMaterials"`
	Confidence         float64     `json:"confidence" validate:"gte=0,lte=100"`
	SafetyLevel        SafetyLevel `json:"safetyLevel" validate:"required,oneof=low medium high"`
	Recommendations    []string    `json:"recommendations"`
	Location           *GeoPoint   `json:"location,omitempty"`
}

// ReportDraft is caller input for creating a report.
type ReportDraft struct {
	Title    string        `json:"title" validate:"required"`
	Type     ReportType    `json:"type" validate:"required,oneof=classification summary analysis uploaded"`
	Content  ReportContent `json:"content"`
	Tags     []string      `json:"tags"`
	IsPublic bool          `json:"isPublic"`
	Status   ReportStatus  `json:"status" validate:"omitempty,oneof=processing completed failed"`
}

// ReportPatch replaces individual report fields; nil means keep.
type ReportPatch struct {
	Title    *string        `json:"title,omitempty"`
	Content  *ReportContent `json:"content,omitempty"`
	Status   *ReportStatus  `json:"status,omitempty"`
	Tags     *[]string      `json:"tags,omitempty"`
	IsPublic *bool          `json:"isPublic,omitempty"`
}

// ProfilePatch replaces individual identity fields; nil means keep.
type ProfilePatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// Notification is an ephemeral in-session message. Dedup identity is
// (Kind, Message), not ID.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
}
