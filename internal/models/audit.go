// Package models defines the GORM models for the Flotilla back office.
package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Record lifecycle values shared by every table.
const (
	RecordActive   = "A"
	RecordInactive = "I"
	RecordDeleted  = "E"
)

// Audit is the uniform audit column set embedded in every model.
// Soft deletes flip RecordStatus to E; rows are never hard-deleted.
type Audit struct {
	RecordStatus string    `gorm:"size:1;not null;default:A;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
	CreatedByID  *uint
	UpdatedByID  *uint
}

// Visible is a GORM scope that hides soft-deleted rows (E). Active and
// inactive rows (A, I) remain visible.
func Visible(db *gorm.DB) *gorm.DB {
	return db.Where("record_status <> ?", RecordDeleted)
}

// Normalize maps a persisted status value to its canonical lowercase form.
// Legacy rows written by earlier importers carry values like
// "TireStatus.NUEVO"; the prefix is stripped so call sites compare against
// one closed set instead of case-juggling.
func Normalize(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if i := strings.LastIndexByte(v, '.'); i >= 0 {
		v = v[i+1:]
	}
	return v
}
