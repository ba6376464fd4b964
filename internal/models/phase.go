package models

import "fmt"

// Phase identifies one stage of the ingestion pipeline.
type Phase string

const (
	PhaseTeams   Phase = "teams"
	PhasePlayers Phase = "players"
	PhaseGames   Phase = "games"
)

// AllPhases lists the phases in their canonical execution order.
// Players reference teams, and games reference teams, so the order matters.
var AllPhases = []Phase{PhaseTeams, PhasePlayers, PhaseGames}

// ParsePhase validates a phase name coming from the boundary.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseTeams, PhasePlayers, PhaseGames:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase: %q", s)
}
