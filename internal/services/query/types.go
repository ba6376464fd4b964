package query

import (
	"errors"

	"statsync/internal/models"
)

// ErrNotFound is returned for lookups of entities that are not in the store.
var ErrNotFound = errors.New("not found")

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// TeamDetail is a team together with its current roster.
type TeamDetail struct {
	models.Team
	Roster []models.Player `json:"roster"`
}

// PlayerFilter narrows and paginates a player listing. Name matches as a
// case-insensitive substring.
type PlayerFilter struct {
	TeamAbbr string
	Name     string
	Page     int
	PageSize int
}

// GameFilter narrows and paginates a game listing. TeamAbbr matches either
// side of the game.
type GameFilter struct {
	Season   int
	Week     int
	TeamAbbr string
	Page     int
	PageSize int
}

// PlayerPage is one page of a player listing.
type PlayerPage struct {
	Players  []models.Player `json:"players"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// GamePage is one page of a game listing.
type GamePage struct {
	Games    []models.Game `json:"games"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
