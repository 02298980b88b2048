package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStatusPersistence_SaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "status.json")
	persistence := NewFileStatusPersistence(path)
	require.NotNil(t, persistence)

	now := time.Now().UTC().Truncate(time.Second)
	testStatus := &RunStatus{
		Phase:         PhaseComplete,
		Message:       "Index generated",
		RunID:         "0b8f6a3c",
		LastAttempt:   &now,
		AttemptCount:  0,
		LastSuccess:   &now,
		URLCount:      4210,
		RejectedCount: 2,
	}

	ctx := context.Background()
	require.NoError(t, persistence.SaveStatus(ctx, testStatus))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := persistence.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, testStatus, loaded)
}

func TestFileStatusPersistence_LoadNonExistent(t *testing.T) {
	t.Parallel()

	persistence := NewFileStatusPersistence(filepath.Join(t.TempDir(), "status.json"))

	loaded, err := persistence.LoadStatus(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, Phase(""), loaded.Phase)
	assert.Empty(t, loaded.Message)
}

func TestFileStatusPersistence_LoadInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.json")
	require.NoError(t, os.WriteFile(path, []byte("{invalid json}"), 0600))

	_, err := NewFileStatusPersistence(path).LoadStatus(context.Background())
	require.ErrorContains(t, err, "failed to unmarshal status data")
}

func TestFileStatusPersistence_UpdateStatus(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.json")
	persistence := NewFileStatusPersistence(path)
	ctx := context.Background()

	now1 := time.Now()
	require.NoError(t, persistence.SaveStatus(ctx, &RunStatus{
		Phase:        PhaseRunning,
		Message:      "Generating index",
		LastAttempt:  &now1,
		AttemptCount: 1,
	}))

	now2 := time.Now()
	require.NoError(t, persistence.SaveStatus(ctx, &RunStatus{
		Phase:       PhaseComplete,
		Message:     "Index generated",
		LastAttempt: &now2,
		LastSuccess: &now2,
		URLCount:    10,
	}))

	loaded, err := persistence.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseComplete, loaded.Phase)
	assert.Equal(t, "Index generated", loaded.Message)
	assert.Equal(t, 0, loaded.AttemptCount)
	assert.Equal(t, 10, loaded.URLCount)
}

func TestFileStatusPersistence_AtomicWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "status.json")
	now := time.Now()
	require.NoError(t, NewFileStatusPersistence(path).SaveStatus(context.Background(), &RunStatus{
		Phase:       PhaseComplete,
		LastAttempt: &now,
	}))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "Temporary file should not exist after save")
}

func TestRunStatus_Clone(t *testing.T) {
	t.Parallel()

	now := time.Now()
	original := &RunStatus{Phase: PhaseComplete, LastAttempt: &now, LastSuccess: &now, URLCount: 3}

	clone := original.Clone()
	assert.Equal(t, original, clone)
	assert.NotSame(t, original.LastAttempt, clone.LastAttempt)
	assert.NotSame(t, original.LastSuccess, clone.LastSuccess)

	var nilStatus *RunStatus
	assert.Equal(t, &RunStatus{}, nilStatus.Clone())
}
