package updater

import (
	"context"
	"errors"
	"fmt"

	"statsync/internal/models"
)

// updateTeams ingests every team in the provider's index, one work unit per
// team, strictly in sequence.
func (s *Service) updateTeams(ctx context.Context) error {
	phase := models.PhaseTeams
	if err := s.status.Initialize(ctx, phase); err != nil {
		return err
	}
	s.log.WithField("phase", phase).Info("Phase started")

	index, err := s.client.FetchTeamIndex(ctx)
	if err != nil {
		return s.abortPhase(ctx, phase, err)
	}

	total := len(index)
	for i, abbr := range index {
		if err := s.checkCancelled(ctx); err != nil {
			return s.abortPhase(ctx, phase, err)
		}

		row, err := s.client.FetchTeam(ctx, abbr)
		if err != nil {
			return s.abortPhase(ctx, phase, err)
		}
		if err := s.upsertTeam(ctx, row); err != nil {
			return s.abortPhase(ctx, phase, err)
		}

		detail := fmt.Sprintf("team %s (%d/%d)", abbr, i+1, total)
		if err := s.status.UpdateProgress(ctx, phase, i+1, total, detail); err != nil {
			return s.abortPhase(ctx, phase, err)
		}
	}

	s.log.WithField("phase", phase).Info("Phase completed")
	return s.status.Finalize(ctx, phase)
}

// updatePlayers ingests rosters, one work unit per team. Teams must have
// been ingested first; the roster replaces the team's previous membership.
func (s *Service) updatePlayers(ctx context.Context) error {
	phase := models.PhasePlayers
	if err := s.status.Initialize(ctx, phase); err != nil {
		return err
	}
	s.log.WithField("phase", phase).Info("Phase started")

	var teams []models.Team
	if err := s.db.WithContext(ctx).Order("abbreviation").Find(&teams).Error; err != nil {
		return s.abortPhase(ctx, phase, fmt.Errorf("failed to list teams: %w", err))
	}
	if len(teams) == 0 {
		return s.abortPhase(ctx, phase, errors.New("no teams in store; run the teams phase first"))
	}

	total := len(teams)
	for i, team := range teams {
		if err := s.checkCancelled(ctx); err != nil {
			return s.abortPhase(ctx, phase, err)
		}

		rows, err := s.client.FetchRoster(ctx, team.Abbreviation)
		if err != nil {
			return s.abortPhase(ctx, phase, err)
		}
		if err := s.upsertRoster(ctx, &team, rows); err != nil {
			return s.abortPhase(ctx, phase, err)
		}

		detail := fmt.Sprintf("roster %s (%d/%d)", team.Abbreviation, i+1, total)
		if err := s.status.UpdateProgress(ctx, phase, i+1, total, detail); err != nil {
			return s.abortPhase(ctx, phase, err)
		}
	}

	s.log.WithField("phase", phase).Info("Phase completed")
	return s.status.Finalize(ctx, phase)
}

// updateGames ingests the season schedule, one work unit per schedule week.
func (s *Service) updateGames(ctx context.Context) error {
	phase := models.PhaseGames
	if err := s.status.Initialize(ctx, phase); err != nil {
		return err
	}
	s.log.WithFields(map[string]any{"phase": phase, "season": s.season}).Info("Phase started")

	weeks, err := s.client.FetchSeasonWeeks(ctx, s.season)
	if err != nil {
		return s.abortPhase(ctx, phase, err)
	}

	// Team references in schedule rows resolve against the local store.
	teamIDs, err := s.teamIDsByAbbreviation(ctx)
	if err != nil {
		return s.abortPhase(ctx, phase, err)
	}

	for week := 1; week <= weeks; week++ {
		if err := s.checkCancelled(ctx); err != nil {
			return s.abortPhase(ctx, phase, err)
		}

		rows, err := s.client.FetchScheduleWeek(ctx, s.season, week)
		if err != nil {
			return s.abortPhase(ctx, phase, err)
		}
		for _, row := range rows {
			if err := s.upsertGame(ctx, row, teamIDs); err != nil {
				return s.abortPhase(ctx, phase, err)
			}
		}

		detail := fmt.Sprintf("week %d/%d (%d games)", week, weeks, len(rows))
		if err := s.status.UpdateProgress(ctx, phase, week, weeks, detail); err != nil {
			return s.abortPhase(ctx, phase, err)
		}
	}

	s.log.WithField("phase", phase).Info("Phase completed")
	return s.status.Finalize(ctx, phase)
}

func (s *Service) teamIDsByAbbreviation(ctx context.Context) (map[string]uint, error) {
	var teams []models.Team
	if err := s.db.WithContext(ctx).Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	ids := make(map[string]uint, len(teams))
	for _, t := range teams {
		ids[t.Abbreviation] = t.ID
	}
	return ids, nil
}
