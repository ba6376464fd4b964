package models

import (
	"time"
)

// Game represents one scheduled or played game. ProviderID is the provider's
// stable game identifier and the upsert key.
type Game struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProviderID string     `gorm:"uniqueIndex;not null;column:provider_id;size:32" json:"provider_id"`
	Season     int        `gorm:"not null;index" json:"season"`
	Week       int        `gorm:"not null;index" json:"week"`
	Kickoff    *time.Time `json:"kickoff,omitempty"`
	HomeTeamID uint       `gorm:"index;column:home_team_id" json:"home_team_id"`
	AwayTeamID uint       `gorm:"index;column:away_team_id" json:"away_team_id"`
	HomeScore  int        `gorm:"not null;default:0" json:"home_score"`
	AwayScore  int        `gorm:"not null;default:0" json:"away_score"`
	Final      bool       `gorm:"not null;default:false" json:"final"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Game) TableName() string {
	return "games"
}
