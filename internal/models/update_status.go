package models

import (
	"time"
)

// UpdateStatusID is the primary key of the single update status row. The
// record is created on first access and never deleted.
const UpdateStatusID uint = 1

// PhaseStatus holds the progress and error state of one ingestion phase.
// Updated is true exactly when PercentComplete is 100 and LastError is empty.
type PhaseStatus struct {
	Updated         bool       `gorm:"not null;default:false" json:"updated"`
	PercentComplete int        `gorm:"not null;default:0" json:"percent_complete"` // 0-100
	LastError       string     `gorm:"type:text" json:"last_error,omitempty"`
	LastUpdate      *time.Time `json:"last_update,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
}

// InProgress reports whether the phase has been started but has neither
// completed nor failed.
func (p *PhaseStatus) InProgress() bool {
	return p.StartTime != nil && !p.Updated && p.LastError == ""
}

// UpdateStatus is the singleton record tracking the ingestion pipeline.
// Per-phase state is a fixed-shape embedded struct per phase rather than a
// keyed map, so readers never have to type-check nested structures.
type UpdateStatus struct {
	ID                    uint       `gorm:"primaryKey" json:"-"`
	IsUpdating            bool       `gorm:"not null;default:false" json:"is_updating"`
	CancellationRequested bool       `gorm:"not null;default:false;column:cancellation_requested" json:"cancellation_requested"`
	CurrentPhase          string     `gorm:"column:current_phase" json:"current_phase,omitempty"` // empty when no phase is active
	CurrentDetail         string     `gorm:"column:current_detail" json:"current_detail,omitempty"`
	LastError             string     `gorm:"type:text" json:"last_error,omitempty"`
	LastErrorTime         *time.Time `gorm:"column:last_error_time" json:"last_error_time,omitempty"`
	LastSuccessfulUpdate  *time.Time `gorm:"column:last_successful_update" json:"last_successful_update,omitempty"`
	NextScheduledUpdate   *time.Time `gorm:"column:next_scheduled_update" json:"next_scheduled_update,omitempty"`

	Teams   PhaseStatus `gorm:"embedded;embeddedPrefix:teams_" json:"teams"`
	Players PhaseStatus `gorm:"embedded;embeddedPrefix:players_" json:"players"`
	Games   PhaseStatus `gorm:"embedded;embeddedPrefix:games_" json:"games"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// PhaseState returns the sub-state for a phase. The enum is closed, so an
// unknown phase is a programming error.
func (s *UpdateStatus) PhaseState(phase Phase) *PhaseStatus {
	switch phase {
	case PhaseTeams:
		return &s.Teams
	case PhasePlayers:
		return &s.Players
	case PhaseGames:
		return &s.Games
	}
	panic("models: unknown phase " + string(phase))
}

// AllComplete reports whether every phase has completed successfully.
func (s *UpdateStatus) AllComplete() bool {
	for _, phase := range AllPhases {
		if !s.PhaseState(phase).Updated {
			return false
		}
	}
	return true
}

// TableName specifies the table name for GORM
func (UpdateStatus) TableName() string {
	return "update_status"
}
