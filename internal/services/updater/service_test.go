package updater

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"statsync/internal/api"
	"statsync/internal/database"
	"statsync/internal/models"
	"statsync/internal/services/status"
	"statsync/internal/services/tasks"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeClient serves canned provider data and lets tests inject failures.
type fakeClient struct {
	index    []string
	teams    map[string]api.Row
	rosters  map[string][]api.Row
	weeks    int
	schedule map[int][]api.Row

	teamErr map[string]error
	fetched []string

	// onFetchTeam runs before each team fetch, for mid-run interference.
	onFetchTeam func(abbr string)
}

func (f *fakeClient) FetchTeamIndex(ctx context.Context) ([]string, error) {
	return f.index, nil
}

func (f *fakeClient) FetchTeam(ctx context.Context, abbr string) (api.Row, error) {
	if f.onFetchTeam != nil {
		f.onFetchTeam(abbr)
	}
	if err := f.teamErr[abbr]; err != nil {
		return nil, err
	}
	f.fetched = append(f.fetched, abbr)
	row, ok := f.teams[abbr]
	if !ok {
		return nil, &api.ProviderError{StatusCode: 404, Status: "404 Not Found"}
	}
	return row, nil
}

func (f *fakeClient) FetchRoster(ctx context.Context, abbr string) ([]api.Row, error) {
	return f.rosters[abbr], nil
}

func (f *fakeClient) FetchSeasonWeeks(ctx context.Context, season int) (int, error) {
	return f.weeks, nil
}

func (f *fakeClient) FetchScheduleWeek(ctx context.Context, season, week int) ([]api.Row, error) {
	return f.schedule[week], nil
}

func teamRow(abbr, name string, wins int) api.Row {
	return api.Row{abbr, name, name + " City", "AFC", "East", name + " Stadium", float64(wins), float64(0), float64(0)}
}

func playerRow(id, name, position string, jersey int) api.Row {
	return api.Row{id, name, position, float64(jersey), "active"}
}

func gameRow(id string, week int, home, away string, final bool) api.Row {
	return api.Row{id, float64(week), "2026-09-13T17:00:00Z", home, away, float64(21), float64(17), final}
}

func defaultFake() *fakeClient {
	return &fakeClient{
		index: []string{"BUF", "MIA", "NE"},
		teams: map[string]api.Row{
			"BUF": teamRow("BUF", "Bills", 11),
			"MIA": teamRow("MIA", "Dolphins", 9),
			"NE":  teamRow("NE", "Patriots", 4),
		},
		rosters: map[string][]api.Row{
			"BUF": {playerRow("p1", "Allen", "QB", 17), playerRow("p2", "Cook", "RB", 4)},
			"MIA": {playerRow("p3", "Tagovailoa", "QB", 1)},
			"NE":  {playerRow("p4", "Maye", "QB", 10)},
		},
		weeks: 2,
		schedule: map[int][]api.Row{
			1: {gameRow("g1", 1, "BUF", "MIA", true)},
			2: {gameRow("g2", 2, "NE", "BUF", false)},
		},
		teamErr: map[string]error{},
	}
}

func newTestService(t *testing.T, client ProviderClient) (*Service, *status.Store, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	log := logrus.New()
	log.SetOutput(io.Discard)
	entry := logrus.NewEntry(log)

	statusStore := status.NewStore(status.NewGormRepository(db))
	runner := tasks.NewRunner(10, entry)
	t.Cleanup(runner.Stop)

	return NewService(db, client, statusStore, runner, 2026, entry), statusStore, db
}

// TestRunPhases tests the full pipeline end to end
func TestRunPhases(t *testing.T) {
	noReport := func(progress float64, step string) {}

	t.Run("Should ingest teams, players, and games", func(t *testing.T) {
		svc, statusStore, db := newTestService(t, defaultFake())

		err := svc.runPhases(context.Background(), models.AllPhases, noReport)
		require.NoError(t, err)

		var teamCount, playerCount, gameCount int64
		db.Model(&models.Team{}).Count(&teamCount)
		db.Model(&models.Player{}).Count(&playerCount)
		db.Model(&models.Game{}).Count(&gameCount)
		assert.Equal(t, int64(3), teamCount)
		assert.Equal(t, int64(4), playerCount)
		assert.Equal(t, int64(2), gameCount)

		snapshot, err := statusStore.Snapshot(context.Background())
		require.NoError(t, err)
		assert.True(t, snapshot.AllComplete())
		assert.False(t, snapshot.IsUpdating)
		assert.NotNil(t, snapshot.LastSuccessfulUpdate)
		assert.Empty(t, snapshot.LastError)
	})

	t.Run("Should converge when run twice", func(t *testing.T) {
		fake := defaultFake()
		svc, _, db := newTestService(t, fake)

		require.NoError(t, svc.runPhases(context.Background(), models.AllPhases, noReport))
		fake.teams["BUF"] = teamRow("BUF", "Bills", 12)
		require.NoError(t, svc.runPhases(context.Background(), models.AllPhases, noReport))

		var teamCount, playerCount, gameCount int64
		db.Model(&models.Team{}).Count(&teamCount)
		db.Model(&models.Player{}).Count(&playerCount)
		db.Model(&models.Game{}).Count(&gameCount)
		assert.Equal(t, int64(3), teamCount, "Upserts must not duplicate teams")
		assert.Equal(t, int64(4), playerCount)
		assert.Equal(t, int64(2), gameCount)

		var buf models.Team
		require.NoError(t, db.Where("abbreviation = ?", "BUF").First(&buf).Error)
		assert.Equal(t, 12, buf.Wins, "Second run overwrites changed fields")
	})

	t.Run("Should stop the phase at the first failing work unit", func(t *testing.T) {
		fake := defaultFake()
		fake.index = []string{"BUF", "MIA", "NE", "NYJ", "PIT"}
		fake.teamErr["NE"] = &api.ProviderError{StatusCode: 404, Status: "404 Not Found"}
		svc, statusStore, db := newTestService(t, fake)

		err := svc.runPhases(context.Background(), []models.Phase{models.PhaseTeams}, noReport)
		require.Error(t, err)

		assert.Equal(t, []string{"BUF", "MIA"}, fake.fetched, "Units after the failure are never fetched")

		var teamCount int64
		db.Model(&models.Team{}).Count(&teamCount)
		assert.Equal(t, int64(2), teamCount)

		snapshot, err := statusStore.Snapshot(context.Background())
		require.NoError(t, err)
		assert.False(t, snapshot.IsUpdating)
		assert.False(t, snapshot.Teams.Updated)
		assert.Equal(t, 40, snapshot.Teams.PercentComplete, "Progress up to the failure is preserved")
		assert.Contains(t, snapshot.Teams.LastError, "404")
		assert.Contains(t, snapshot.LastError, "404")
		assert.NotNil(t, snapshot.LastErrorTime)
	})

	t.Run("Should not run later phases after a failure", func(t *testing.T) {
		fake := defaultFake()
		fake.teamErr["BUF"] = &api.ProviderError{StatusCode: 500, Status: "500 Internal Server Error"}
		svc, statusStore, db := newTestService(t, fake)

		err := svc.runPhases(context.Background(), models.AllPhases, noReport)
		require.Error(t, err)

		var playerCount int64
		db.Model(&models.Player{}).Count(&playerCount)
		assert.Equal(t, int64(0), playerCount)

		snapshot, err := statusStore.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Nil(t, snapshot.Players.StartTime, "Players phase never started")
	})

	t.Run("Should unwind cleanly on cooperative cancellation", func(t *testing.T) {
		fake := defaultFake()
		fake.index = []string{"BUF", "MIA", "NE", "NYJ"}
		fake.teams["NYJ"] = teamRow("NYJ", "Jets", 5)
		svc, statusStore, _ := newTestService(t, fake)

		fetchCount := 0
		fake.onFetchTeam = func(abbr string) {
			fetchCount++
			if fetchCount == 2 {
				require.NoError(t, statusStore.RequestCancellation(context.Background()))
			}
		}

		err := svc.runPhases(context.Background(), models.AllPhases, func(progress float64, step string) {})
		require.NoError(t, err, "Cancellation is not an error")

		snapshot, err := statusStore.Snapshot(context.Background())
		require.NoError(t, err)
		assert.False(t, snapshot.IsUpdating)
		assert.False(t, snapshot.CancellationRequested, "Flag is consumed by the unwind")
		assert.Empty(t, snapshot.LastError)
		assert.Equal(t, 50, snapshot.Teams.PercentComplete, "Progress of finished units is preserved")
		assert.Nil(t, snapshot.Players.StartTime, "Later phases never start")
	})

	t.Run("Should report cancellation when the task context is cancelled", func(t *testing.T) {
		fake := defaultFake()
		svc, statusStore, _ := newTestService(t, fake)

		ctx, cancel := context.WithCancel(context.Background())
		fake.onFetchTeam = func(abbr string) {
			if abbr == "MIA" {
				cancel()
			}
		}

		err := svc.runPhases(ctx, models.AllPhases, func(progress float64, step string) {})
		assert.ErrorIs(t, err, context.Canceled)

		snapshot, serr := statusStore.Snapshot(context.Background())
		require.NoError(t, serr)
		assert.False(t, snapshot.IsUpdating, "Unwind writes survive the dead context")
		assert.Empty(t, snapshot.LastError)
	})

	t.Run("Should fail the phase on malformed provider rows", func(t *testing.T) {
		fake := defaultFake()
		fake.teams["MIA"] = api.Row{"MIA", "Dolphins"} // short row
		svc, statusStore, _ := newTestService(t, fake)

		err := svc.runPhases(context.Background(), []models.Phase{models.PhaseTeams}, noReport)
		require.Error(t, err)

		var dataErr *DataError
		assert.ErrorAs(t, err, &dataErr)

		snapshot, serr := statusStore.Snapshot(context.Background())
		require.NoError(t, serr)
		assert.Contains(t, snapshot.Teams.LastError, "invalid provider data")
	})

	t.Run("Should refuse the players phase with an empty team store", func(t *testing.T) {
		svc, statusStore, _ := newTestService(t, defaultFake())

		err := svc.runPhases(context.Background(), []models.Phase{models.PhasePlayers}, noReport)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no teams in store")

		snapshot, serr := statusStore.Snapshot(context.Background())
		require.NoError(t, serr)
		assert.Contains(t, snapshot.Players.LastError, "no teams in store")
	})

	t.Run("Should unassign players who left the roster", func(t *testing.T) {
		fake := defaultFake()
		svc, _, db := newTestService(t, fake)

		require.NoError(t, svc.runPhases(context.Background(), []models.Phase{models.PhaseTeams, models.PhasePlayers}, noReport))

		fake.rosters["BUF"] = []api.Row{playerRow("p1", "Allen", "QB", 17)}
		require.NoError(t, svc.runPhases(context.Background(), []models.Phase{models.PhasePlayers}, noReport))

		var departed models.Player
		require.NoError(t, db.Where("provider_id = ?", "p2").First(&departed).Error)
		assert.Equal(t, uint(0), departed.TeamID, "Departed players are unassigned, not deleted")
	})

	t.Run("Should fail the games phase on an unknown team reference", func(t *testing.T) {
		fake := defaultFake()
		fake.schedule[1] = []api.Row{gameRow("g1", 1, "BUF", "XXX", false)}
		svc, _, _ := newTestService(t, fake)

		require.NoError(t, svc.runPhases(context.Background(), []models.Phase{models.PhaseTeams}, noReport))
		err := svc.runPhases(context.Background(), []models.Phase{models.PhaseGames}, noReport)

		require.Error(t, err)
		var dataErr *DataError
		require.ErrorAs(t, err, &dataErr)
		assert.Contains(t, err.Error(), "XXX")
	})
}

// TestTriggerUpdate tests the single-flight trigger boundary
func TestTriggerUpdate(t *testing.T) {
	t.Run("Should reject a trigger while an update is in progress", func(t *testing.T) {
		svc, statusStore, _ := newTestService(t, defaultFake())
		require.NoError(t, statusStore.Initialize(context.Background(), models.PhaseTeams))

		before, err := statusStore.Snapshot(context.Background())
		require.NoError(t, err)

		_, err = svc.TriggerUpdate(context.Background(), nil)
		assert.ErrorIs(t, err, ErrUpdateInProgress)

		after, err := statusStore.Snapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, before.CurrentPhase, after.CurrentPhase, "A rejected trigger must not touch the record")
		assert.Equal(t, before.IsUpdating, after.IsUpdating)
	})

	t.Run("Should return a task ID for an accepted trigger", func(t *testing.T) {
		svc, _, _ := newTestService(t, defaultFake())

		taskID, err := svc.TriggerUpdate(context.Background(), []models.Phase{models.PhaseTeams})
		require.NoError(t, err)
		assert.NotEmpty(t, taskID)
	})
}

// TestOrderPhases tests phase set normalization
func TestOrderPhases(t *testing.T) {
	t.Run("Should dedupe and order requested phases", func(t *testing.T) {
		ordered := orderPhases([]models.Phase{models.PhaseGames, models.PhaseTeams, models.PhaseGames})
		assert.Equal(t, []models.Phase{models.PhaseTeams, models.PhaseGames}, ordered)
	})

	t.Run("Should return nothing for an empty request", func(t *testing.T) {
		assert.Empty(t, orderPhases(nil))
	})
}
