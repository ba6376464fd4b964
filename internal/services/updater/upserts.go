package updater

import (
	"context"
	"errors"
	"fmt"

	"statsync/internal/api"
	"statsync/internal/models"

	"gorm.io/gorm"
)

// Team rows: [abbreviation, name, city, conference, division, stadium,
// wins, losses, ties].
func (s *Service) upsertTeam(ctx context.Context, row api.Row) error {
	abbr, err := rowString(row, 0)
	if err != nil {
		return err
	}
	name, err := rowString(row, 1)
	if err != nil {
		return err
	}
	city, err := rowString(row, 2)
	if err != nil {
		return err
	}
	conference, err := rowString(row, 3)
	if err != nil {
		return err
	}
	division, err := rowString(row, 4)
	if err != nil {
		return err
	}
	stadium, err := rowString(row, 5)
	if err != nil {
		return err
	}
	wins, err := rowInt(row, 6)
	if err != nil {
		return err
	}
	losses, err := rowInt(row, 7)
	if err != nil {
		return err
	}
	ties, err := rowInt(row, 8)
	if err != nil {
		return err
	}

	var team models.Team
	result := s.db.WithContext(ctx).Where("abbreviation = ?", abbr).First(&team)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up team %s: %w", abbr, result.Error)
	}

	team.Abbreviation = abbr
	team.Name = name
	team.City = city
	team.Conference = conference
	team.Division = division
	team.Stadium = stadium
	team.Wins = wins
	team.Losses = losses
	team.Ties = ties

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(&team).Error; err != nil {
			return fmt.Errorf("failed to create team %s: %w", abbr, err)
		}
		return nil
	}
	if err := s.db.WithContext(ctx).Save(&team).Error; err != nil {
		return fmt.Errorf("failed to save team %s: %w", abbr, err)
	}
	return nil
}

// Roster rows: [provider_id, name, position, jersey_number, status].
// After the roster is applied, players previously on the team but missing
// from the new roster are unassigned, not deleted.
func (s *Service) upsertRoster(ctx context.Context, team *models.Team, rows []api.Row) error {
	rosterIDs := make([]string, 0, len(rows))

	for _, row := range rows {
		providerID, err := rowString(row, 0)
		if err != nil {
			return err
		}
		name, err := rowString(row, 1)
		if err != nil {
			return err
		}
		position, err := rowString(row, 2)
		if err != nil {
			return err
		}
		jerseyNumber, err := rowInt(row, 3)
		if err != nil {
			return err
		}
		playerStatus, err := rowString(row, 4)
		if err != nil {
			return err
		}

		var player models.Player
		result := s.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&player)
		if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up player %s: %w", providerID, result.Error)
		}

		player.ProviderID = providerID
		player.Name = name
		player.Position = position
		player.JerseyNumber = jerseyNumber
		player.Status = playerStatus
		player.TeamID = team.ID

		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
				return fmt.Errorf("failed to create player %s: %w", providerID, err)
			}
		} else if err := s.db.WithContext(ctx).Save(&player).Error; err != nil {
			return fmt.Errorf("failed to save player %s: %w", providerID, err)
		}

		rosterIDs = append(rosterIDs, providerID)
	}

	departed := s.db.WithContext(ctx).Model(&models.Player{}).Where("team_id = ?", team.ID)
	if len(rosterIDs) > 0 {
		departed = departed.Where("provider_id NOT IN ?", rosterIDs)
	}
	if err := departed.Update("team_id", 0).Error; err != nil {
		return fmt.Errorf("failed to unassign departed players for %s: %w", team.Abbreviation, err)
	}
	return nil
}

// Schedule rows: [provider_id, week, kickoff, home_abbr, away_abbr,
// home_score, away_score, final]. A row referencing an unknown team is a
// data error.
func (s *Service) upsertGame(ctx context.Context, row api.Row, teamIDs map[string]uint) error {
	providerID, err := rowString(row, 0)
	if err != nil {
		return err
	}
	week, err := rowInt(row, 1)
	if err != nil {
		return err
	}
	kickoff, err := rowTime(row, 2)
	if err != nil {
		return err
	}
	homeAbbr, err := rowString(row, 3)
	if err != nil {
		return err
	}
	awayAbbr, err := rowString(row, 4)
	if err != nil {
		return err
	}
	homeScore, err := rowInt(row, 5)
	if err != nil {
		return err
	}
	awayScore, err := rowInt(row, 6)
	if err != nil {
		return err
	}
	final, err := rowBool(row, 7)
	if err != nil {
		return err
	}

	homeID, ok := teamIDs[homeAbbr]
	if !ok {
		return dataErrorf("game %s references unknown team %q", providerID, homeAbbr)
	}
	awayID, ok := teamIDs[awayAbbr]
	if !ok {
		return dataErrorf("game %s references unknown team %q", providerID, awayAbbr)
	}

	var game models.Game
	result := s.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&game)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up game %s: %w", providerID, result.Error)
	}

	game.ProviderID = providerID
	game.Season = s.season
	game.Week = week
	game.Kickoff = kickoff
	game.HomeTeamID = homeID
	game.AwayTeamID = awayID
	game.HomeScore = homeScore
	game.AwayScore = awayScore
	game.Final = final

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		if err := s.db.WithContext(ctx).Create(&game).Error; err != nil {
			return fmt.Errorf("failed to create game %s: %w", providerID, err)
		}
		return nil
	}
	if err := s.db.WithContext(ctx).Save(&game).Error; err != nil {
		return fmt.Errorf("failed to save game %s: %w", providerID, err)
	}
	return nil
}
