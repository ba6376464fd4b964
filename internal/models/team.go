package models

import (
	"time"
)

// Team represents a league team. The provider's abbreviation is the natural
// key; ingestion upserts against it, so repeated runs converge.
type Team struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Abbreviation string    `gorm:"uniqueIndex;not null;size:8" json:"abbreviation"`
	Name         string    `gorm:"not null" json:"name"`
	City         string    `json:"city"`
	Conference   string    `gorm:"size:32;index" json:"conference"`
	Division     string    `gorm:"size:32;index" json:"division"`
	Stadium      string    `json:"stadium"`
	Wins         int       `gorm:"not null;default:0" json:"wins"`
	Losses       int       `gorm:"not null;default:0" json:"losses"`
	Ties         int       `gorm:"not null;default:0" json:"ties"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Team) TableName() string {
	return "teams"
}
