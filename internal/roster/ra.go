package roster

import (
	"strings"
	"time"
)

// RA captures a resident assistant on the roster.
type RA struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:190;not null;index" json:"name"`
	Email     string    `gorm:"column:email;size:320;not null;default:''" json:"email"`
	Phone     string    `gorm:"column:phone;size:64;not null;default:''" json:"phone"`
	Hall      string    `gorm:"column:hall;size:190;not null;default:''" json:"hall"`
	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

// TableName exposes the table backing the roster.
func (RA) TableName() string {
	return "ras"
}

// Summary is the {id, name} projection consumed by assignment pickers.
type Summary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Summary projects the RA for pickers.
func (ra RA) Summary() Summary {
	return Summary{ID: ra.ID, Name: ra.Name}
}

// Profile carries the editable RA fields.
type Profile struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Hall   string `json:"hall"`
	Active *bool  `json:"active"`
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
