package updater

import (
	"context"
	"errors"
	"fmt"
	"time"

	"statsync/internal/api"
)

// ErrUpdateInProgress is returned by TriggerUpdate while a pipeline run is
// already active. The check is advisory: it reads the status record before
// the first write, so two triggers racing through the window can both pass.
var ErrUpdateInProgress = errors.New("an update is already in progress")

// errCancelled aborts the pipeline after a cooperative cancellation poll.
// Cancellation is not an error: it never reaches the status record's error
// fields.
var errCancelled = errors.New("update cancelled")

// ProviderClient is the slice of the provider API the pipeline consumes.
type ProviderClient interface {
	FetchTeamIndex(ctx context.Context) ([]string, error)
	FetchTeam(ctx context.Context, abbr string) (api.Row, error)
	FetchRoster(ctx context.Context, abbr string) ([]api.Row, error)
	FetchSeasonWeeks(ctx context.Context, season int) (int, error)
	FetchScheduleWeek(ctx context.Context, season, week int) ([]api.Row, error)
}

// DataError is a permanent payload error: a fetched row that is too short,
// has the wrong type at an index, or references an unknown entity. It is
// never retried and always phase-fatal.
type DataError struct {
	Detail string
}

func (e *DataError) Error() string {
	return "invalid provider data: " + e.Detail
}

func dataErrorf(format string, args ...any) error {
	return &DataError{Detail: fmt.Sprintf(format, args...)}
}

// The provider returns positionally-ordered rows; fields are parsed by
// fixed index. JSON numbers arrive as float64, so the int accessor coerces.

func rowString(row api.Row, idx int) (string, error) {
	if idx >= len(row) {
		return "", dataErrorf("row has %d fields, want index %d", len(row), idx)
	}
	s, ok := row[idx].(string)
	if !ok {
		return "", dataErrorf("field %d is %T, want string", idx, row[idx])
	}
	return s, nil
}

func rowInt(row api.Row, idx int) (int, error) {
	if idx >= len(row) {
		return 0, dataErrorf("row has %d fields, want index %d", len(row), idx)
	}
	f, ok := row[idx].(float64)
	if !ok {
		return 0, dataErrorf("field %d is %T, want number", idx, row[idx])
	}
	return int(f), nil
}

func rowBool(row api.Row, idx int) (bool, error) {
	if idx >= len(row) {
		return false, dataErrorf("row has %d fields, want index %d", len(row), idx)
	}
	b, ok := row[idx].(bool)
	if !ok {
		return false, dataErrorf("field %d is %T, want bool", idx, row[idx])
	}
	return b, nil
}

func rowTime(row api.Row, idx int) (*time.Time, error) {
	s, err := rowString(row, idx)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, dataErrorf("field %d is not an RFC3339 timestamp: %q", idx, s)
	}
	return &t, nil
}
