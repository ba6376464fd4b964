package status

import (
	"context"
	"testing"
	"time"

	"statsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepository keeps the status record in memory for store tests.
type memRepository struct {
	record models.UpdateStatus
}

func (r *memRepository) Load(ctx context.Context) (*models.UpdateStatus, error) {
	copy := r.record
	copy.ID = models.UpdateStatusID
	return &copy, nil
}

func (r *memRepository) Save(ctx context.Context, s *models.UpdateStatus) error {
	r.record = *s
	return nil
}

func newTestStore() (*Store, *memRepository) {
	repo := &memRepository{}
	store := NewStore(repo)
	store.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	return store, repo
}

// TestInitialize tests phase start transitions
func TestInitialize(t *testing.T) {
	t.Run("Should enter the updating state and reset the phase", func(t *testing.T) {
		store, repo := newTestStore()

		err := store.Initialize(context.Background(), models.PhaseTeams)
		require.NoError(t, err)

		rec := repo.record
		assert.True(t, rec.IsUpdating)
		assert.Equal(t, "teams", rec.CurrentPhase)
		assert.False(t, rec.CancellationRequested)
		assert.Empty(t, rec.LastError)
		assert.Nil(t, rec.LastErrorTime)
		assert.False(t, rec.Teams.Updated)
		assert.Equal(t, 0, rec.Teams.PercentComplete)
		assert.NotNil(t, rec.Teams.StartTime)
	})

	t.Run("Should discard stale phase state from a previous run", func(t *testing.T) {
		store, repo := newTestStore()
		repo.record.Teams = models.PhaseStatus{
			Updated:         true,
			PercentComplete: 100,
			LastError:       "old failure",
		}
		repo.record.LastError = "old failure"

		err := store.Initialize(context.Background(), models.PhaseTeams)
		require.NoError(t, err)

		rec := repo.record
		assert.False(t, rec.Teams.Updated)
		assert.Equal(t, 0, rec.Teams.PercentComplete)
		assert.Empty(t, rec.Teams.LastError)
		assert.Empty(t, rec.LastError)
	})

	t.Run("Should leave other phases untouched", func(t *testing.T) {
		store, repo := newTestStore()
		now := time.Now()
		repo.record.Teams = models.PhaseStatus{Updated: true, PercentComplete: 100, LastUpdate: &now}

		err := store.Initialize(context.Background(), models.PhasePlayers)
		require.NoError(t, err)

		assert.True(t, repo.record.Teams.Updated)
		assert.Equal(t, 100, repo.record.Teams.PercentComplete)
	})

	t.Run("Should clear a pending cancellation flag", func(t *testing.T) {
		store, repo := newTestStore()
		repo.record.CancellationRequested = true

		err := store.Initialize(context.Background(), models.PhaseGames)
		require.NoError(t, err)

		assert.False(t, repo.record.CancellationRequested)
	})
}

// TestUpdateProgress tests per-unit progress accounting
func TestUpdateProgress(t *testing.T) {
	t.Run("Should floor the percentage", func(t *testing.T) {
		store, repo := newTestStore()
		require.NoError(t, store.Initialize(context.Background(), models.PhaseTeams))

		err := store.UpdateProgress(context.Background(), models.PhaseTeams, 2, 5, "team NYG (2/5)")
		require.NoError(t, err)

		assert.Equal(t, 40, repo.record.Teams.PercentComplete)
		assert.False(t, repo.record.Teams.Updated)
		assert.Equal(t, "team NYG (2/5)", repo.record.CurrentDetail)
	})

	t.Run("Should report zero percent for a zero total", func(t *testing.T) {
		store, repo := newTestStore()

		err := store.UpdateProgress(context.Background(), models.PhaseTeams, 0, 0, "")
		require.NoError(t, err)

		assert.Equal(t, 0, repo.record.Teams.PercentComplete)
	})

	t.Run("Should mark the phase updated at one hundred percent", func(t *testing.T) {
		store, repo := newTestStore()

		err := store.UpdateProgress(context.Background(), models.PhasePlayers, 5, 5, "")
		require.NoError(t, err)

		assert.Equal(t, 100, repo.record.Players.PercentComplete)
		assert.True(t, repo.record.Players.Updated)
	})

	t.Run("Should never exceed one hundred percent", func(t *testing.T) {
		store, repo := newTestStore()

		err := store.UpdateProgress(context.Background(), models.PhaseGames, 7, 5, "")
		require.NoError(t, err)

		assert.Equal(t, 100, repo.record.Games.PercentComplete)
	})
}

// TestFinalize tests successful phase completion
func TestFinalize(t *testing.T) {
	t.Run("Should complete the phase and end a single-phase run", func(t *testing.T) {
		store, repo := newTestStore()
		require.NoError(t, store.Initialize(context.Background(), models.PhaseTeams))

		err := store.Finalize(context.Background(), models.PhaseTeams)
		require.NoError(t, err)

		rec := repo.record
		assert.True(t, rec.Teams.Updated)
		assert.Equal(t, 100, rec.Teams.PercentComplete)
		assert.Empty(t, rec.Teams.LastError)
		assert.NotNil(t, rec.Teams.LastUpdate)
		assert.NotNil(t, rec.LastSuccessfulUpdate)
		assert.False(t, rec.IsUpdating)
		assert.Empty(t, rec.CurrentPhase)
	})

	t.Run("Should keep the run active while another phase is in progress", func(t *testing.T) {
		store, repo := newTestStore()
		require.NoError(t, store.Initialize(context.Background(), models.PhaseTeams))
		require.NoError(t, store.Initialize(context.Background(), models.PhasePlayers))

		err := store.Finalize(context.Background(), models.PhaseTeams)
		require.NoError(t, err)

		assert.True(t, repo.record.IsUpdating, "Players is still in progress")
	})

	t.Run("Should end the run when every phase is complete", func(t *testing.T) {
		store, repo := newTestStore()
		for _, phase := range models.AllPhases {
			require.NoError(t, store.Initialize(context.Background(), phase))
			require.NoError(t, store.Finalize(context.Background(), phase))
		}

		assert.True(t, repo.record.AllComplete())
		assert.False(t, repo.record.IsUpdating)
	})
}

// TestRecordError tests failed phase completion
func TestRecordError(t *testing.T) {
	t.Run("Should record the phase error and end the run", func(t *testing.T) {
		store, repo := newTestStore()
		require.NoError(t, store.Initialize(context.Background(), models.PhasePlayers))
		require.NoError(t, store.UpdateProgress(context.Background(), models.PhasePlayers, 2, 5, ""))

		err := store.RecordError(context.Background(), models.PhasePlayers, "roster fetch failed")
		require.NoError(t, err)

		rec := repo.record
		assert.False(t, rec.Players.Updated)
		assert.Equal(t, "roster fetch failed", rec.Players.LastError)
		assert.Equal(t, 40, rec.Players.PercentComplete, "Partial progress stays recorded")
		assert.False(t, rec.IsUpdating)
		assert.Empty(t, rec.CurrentPhase)
		assert.Equal(t, "roster fetch failed", rec.LastError)
		assert.NotNil(t, rec.LastErrorTime)
	})

	t.Run("Should preserve completed phases from the same run", func(t *testing.T) {
		store, repo := newTestStore()
		require.NoError(t, store.Initialize(context.Background(), models.PhaseTeams))
		require.NoError(t, store.Finalize(context.Background(), models.PhaseTeams))
		require.NoError(t, store.Initialize(context.Background(), models.PhasePlayers))

		err := store.RecordError(context.Background(), models.PhasePlayers, "boom")
		require.NoError(t, err)

		assert.True(t, repo.record.Teams.Updated)
	})
}

// TestCancellation tests the cooperative cancellation flag
func TestCancellation(t *testing.T) {
	t.Run("Should round-trip the flag", func(t *testing.T) {
		store, _ := newTestStore()

		requested, err := store.CancellationRequested(context.Background())
		require.NoError(t, err)
		assert.False(t, requested)

		require.NoError(t, store.RequestCancellation(context.Background()))

		requested, err = store.CancellationRequested(context.Background())
		require.NoError(t, err)
		assert.True(t, requested)
	})

	t.Run("Should succeed when no run is active", func(t *testing.T) {
		store, repo := newTestStore()

		err := store.RequestCancellation(context.Background())
		require.NoError(t, err)
		assert.False(t, repo.record.IsUpdating)
	})
}

// TestClearUpdating tests the cancellation unwind
func TestClearUpdating(t *testing.T) {
	t.Run("Should end the run but keep partial progress and no error", func(t *testing.T) {
		store, repo := newTestStore()
		require.NoError(t, store.Initialize(context.Background(), models.PhaseGames))
		require.NoError(t, store.UpdateProgress(context.Background(), models.PhaseGames, 3, 10, "week 3/10"))
		require.NoError(t, store.RequestCancellation(context.Background()))

		err := store.ClearUpdating(context.Background())
		require.NoError(t, err)

		rec := repo.record
		assert.False(t, rec.IsUpdating)
		assert.Empty(t, rec.CurrentPhase)
		assert.False(t, rec.CancellationRequested)
		assert.Equal(t, 30, rec.Games.PercentComplete)
		assert.Empty(t, rec.Games.LastError)
		assert.Empty(t, rec.LastError)
	})
}

// TestSetNextScheduledUpdate tests the scheduler mirror field
func TestSetNextScheduledUpdate(t *testing.T) {
	t.Run("Should record the next activation time", func(t *testing.T) {
		store, repo := newTestStore()
		next := time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)

		err := store.SetNextScheduledUpdate(context.Background(), next)
		require.NoError(t, err)

		require.NotNil(t, repo.record.NextScheduledUpdate)
		assert.Equal(t, next, *repo.record.NextScheduledUpdate)
	})
}
