package dto

import (
	"encoding/json"

	"github.com/noah-isme/painel-aulas-api/internal/models"
)

// ScheduleEntryInput is a class without an id, as produced by the form or an import row.
type ScheduleEntryInput struct {
	Date       string `json:"data" validate:"required,ddmmyyyy"`
	Room       string `json:"sala"`
	Group      string `json:"turma"`
	Instructor string `json:"instrutor"`
	Subject    string `json:"unidade_curricular"`
	StartTime  string `json:"inicio" validate:"omitempty,hhmm"`
	EndTime    string `json:"fim" validate:"omitempty,hhmm"`
}

// UpdateScheduleEntryRequest merges only the fields that are present.
type UpdateScheduleEntryRequest struct {
	Date       *string `json:"data" validate:"omitempty,ddmmyyyy"`
	Room       *string `json:"sala"`
	Group      *string `json:"turma"`
	Instructor *string `json:"instrutor"`
	Subject    *string `json:"unidade_curricular"`
	StartTime  *string `json:"inicio" validate:"omitempty,hhmm"`
	EndTime    *string `json:"fim" validate:"omitempty,hhmm"`
}

// ImportScheduleRequest bulk-replaces the schedule from already-mapped rows.
type ImportScheduleRequest struct {
	Entries []ScheduleEntryInput `json:"aulas"`
}

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	Imported int                    `json:"imported"`
	Dropped  int                    `json:"dropped"`
	Entries  []models.ScheduleEntry `json:"aulas"`
}

// CreateAdvertisementRequest carries the media as a data URI.
type CreateAdvertisementRequest struct {
	Type string `json:"type" validate:"required,oneof=image video"`
	Src  string `json:"src" validate:"required"`
}

// SyncRequest is the proxy payload. BaseSHA, when set, is the revision the
// caller's snapshot was read at. ExpectAbsent marks a snapshot read while the
// object did not exist yet, so a concurrent creation is a conflict.
type SyncRequest struct {
	Path         string `json:"path" validate:"required"`
	Content      string `json:"content"`
	IsBase64     bool   `json:"isBase64"`
	BaseSHA      string `json:"baseSha,omitempty"`
	ExpectAbsent bool   `json:"expectAbsent,omitempty"`
	Message      string `json:"message,omitempty"`
}

// SyncResult is the remote store's answer to a successful commit.
type SyncResult struct {
	Status    int             `json:"-"`
	Data      json.RawMessage `json:"data"`
	SHA       string          `json:"-"`
	CommitSHA string          `json:"-"`
}

// SyncResponse is the proxy's success body.
type SyncResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// DatasetView is the snapshot plus the revision it was read at.
type DatasetView struct {
	Snapshot models.Snapshot
	Revision string
}
