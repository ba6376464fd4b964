// Package query serves read-only views over the ingested league data.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"statsync/internal/models"

	"gorm.io/gorm"
)

// Service answers read queries against the local store.
type Service struct {
	db *gorm.DB
}

// NewService creates the query service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ListTeams returns teams ordered by abbreviation, optionally filtered by
// conference and division.
func (s *Service) ListTeams(ctx context.Context, conference, division string) ([]models.Team, error) {
	q := s.db.WithContext(ctx).Order("abbreviation")
	if conference != "" {
		q = q.Where("conference = ?", conference)
	}
	if division != "" {
		q = q.Where("division = ?", division)
	}

	var teams []models.Team
	if err := q.Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// GetTeam returns one team with its current roster, looked up by
// abbreviation.
func (s *Service) GetTeam(ctx context.Context, abbr string) (*TeamDetail, error) {
	var team models.Team
	err := s.db.WithContext(ctx).Where("abbreviation = ?", abbr).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("team %s: %w", abbr, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up team %s: %w", abbr, err)
	}

	var roster []models.Player
	if err := s.db.WithContext(ctx).Where("team_id = ?", team.ID).Order("jersey_number").Find(&roster).Error; err != nil {
		return nil, fmt.Errorf("failed to load roster for %s: %w", abbr, err)
	}

	return &TeamDetail{Team: team, Roster: roster}, nil
}

// ListPlayers returns one page of players matching the filter, ordered by
// name.
func (s *Service) ListPlayers(ctx context.Context, filter PlayerFilter) (*PlayerPage, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	q := s.db.WithContext(ctx).Model(&models.Player{})
	if filter.TeamAbbr != "" {
		var team models.Team
		err := s.db.WithContext(ctx).Where("abbreviation = ?", filter.TeamAbbr).First(&team).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("team %s: %w", filter.TeamAbbr, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up team %s: %w", filter.TeamAbbr, err)
		}
		q = q.Where("team_id = ?", team.ID)
	}
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}

	var players []models.Player
	err := q.Order("name").Offset((page - 1) * pageSize).Limit(pageSize).Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	return &PlayerPage{Players: players, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListGames returns one page of games matching the filter, ordered by week
// and kickoff.
func (s *Service) ListGames(ctx context.Context, filter GameFilter) (*GamePage, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	q := s.db.WithContext(ctx).Model(&models.Game{})
	if filter.Season != 0 {
		q = q.Where("season = ?", filter.Season)
	}
	if filter.Week != 0 {
		q = q.Where("week = ?", filter.Week)
	}
	if filter.TeamAbbr != "" {
		var team models.Team
		err := s.db.WithContext(ctx).Where("abbreviation = ?", filter.TeamAbbr).First(&team).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("team %s: %w", filter.TeamAbbr, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up team %s: %w", filter.TeamAbbr, err)
		}
		q = q.Where("home_team_id = ? OR away_team_id = ?", team.ID, team.ID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count games: %w", err)
	}

	var games []models.Game
	err := q.Order("week, kickoff").Offset((page - 1) * pageSize).Limit(pageSize).Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return &GamePage{Games: games, Total: total, Page: page, PageSize: pageSize}, nil
}
