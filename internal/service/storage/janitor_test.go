package storage

import (
	"image"
	"os"
	"testing"
	"time"

	"plateserver/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cutoffRecorder struct {
	repository.RecognitionRepository
	cutoffs []time.Time
}

func (r *cutoffRecorder) DeleteOlderThan(cutoff time.Time) (int64, error) {
	r.cutoffs = append(r.cutoffs, cutoff)
	return 1, nil
}

func TestJanitor_SweepPrunesFilesAndHistory(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	name, err := store.SaveReceived("stale", image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)
	past := now.Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.ReceivedPath(name), past, past))

	repo := &cutoffRecorder{}
	j := NewJanitor(store, repo, 24*time.Hour, "@every 1h", store.logger)
	j.Sweep()

	assert.NoFileExists(t, store.ReceivedPath(name))
	require.Len(t, repo.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), repo.cutoffs[0])
}

func TestJanitor_StartValidatesSchedule(t *testing.T) {
	store := newTestStore(t)

	disabled := NewJanitor(store, nil, 0, "not a schedule", store.logger)
	require.NoError(t, disabled.Start())
	disabled.Stop()

	broken := NewJanitor(store, nil, time.Hour, "not a schedule", store.logger)
	assert.Error(t, broken.Start())

	ok := NewJanitor(store, nil, time.Hour, "@every 1h", store.logger)
	require.NoError(t, ok.Start())
	ok.Stop()
}
