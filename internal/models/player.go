package models

import (
	"time"
)

// Player represents a rostered player. ProviderID is the provider's stable
// player identifier and the upsert key; TeamID tracks the current roster.
type Player struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProviderID   string    `gorm:"uniqueIndex;not null;column:provider_id;size:32" json:"provider_id"`
	Name         string    `gorm:"not null;index" json:"name"`
	Position     string    `gorm:"size:8" json:"position"`
	JerseyNumber int       `gorm:"column:jersey_number" json:"jersey_number"`
	Status       string    `gorm:"size:16" json:"status"` // active, injured, inactive
	TeamID       uint      `gorm:"index;column:team_id" json:"team_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Player) TableName() string {
	return "players"
}
