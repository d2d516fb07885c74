package storage

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"plateserver/internal/config"
	"plateserver/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()

	log, err := logger.New(filepath.Join(base, "logs"), os.Stdout)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	store, err := NewStore(&config.Config{
		ReceivedDirectory: filepath.Join(base, "received"),
		ArtifactDirectory: filepath.Join(base, "tmp"),
	}, log)
	require.NoError(t, err)
	return store
}

func TestReceivedName(t *testing.T) {
	ts := time.Date(2025, 4, 9, 13, 5, 7, 123456789, time.UTC)

	assert.Equal(t, "received_2025_04_09-13_05_07_123456_9f86d081.jpg", ReceivedName(ts, "9f86d081-884c-4d63"))
	assert.Equal(t, "received_2025_04_09-13_05_07_123456_ab.jpg", ReceivedName(ts, "ab"))
}

func TestSaveReceived_WritesDecodableJPEG(t *testing.T) {
	store := newTestStore(t)

	name, err := store.SaveReceived("0123456789abcdef", image.NewRGBA(image.Rect(0, 0, 32, 16)))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^received_\d{4}_\d{2}_\d{2}-\d{2}_\d{2}_\d{2}_\d{6}_01234567\.jpg$`), name)

	f, err := os.Open(store.ReceivedPath(name))
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())

	entries, err := os.ReadDir(store.ReceivedDir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteArtifact_UsesRequestNamespace(t *testing.T) {
	store := newTestStore(t)
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))

	a, err := store.WriteArtifact("req-a", "plate_box.jpg", img)
	require.NoError(t, err)
	b, err := store.WriteArtifact("req-b", "plate_box.jpg", img)
	require.NoError(t, err)

	assert.Equal(t, "req-a/plate_box.jpg", a)
	assert.Equal(t, "req-b/plate_box.jpg", b)
	assert.FileExists(t, filepath.Join(store.ArtifactDir(), "req-a", "plate_box.jpg"))
	assert.FileExists(t, store.ArtifactPath("req-b", "plate_box.jpg"))
}

func TestWriteArtifact_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	for _, id := range []string{"", "..", "../escape", `a\b`, ".hidden"} {
		_, err := store.WriteArtifact(id, "car_box.jpg", img)
		assert.ErrorIs(t, err, ErrInvalidName, id)
	}
	_, err := store.WriteArtifact("ok", "../car_box.jpg", img)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRemoveRequest(t *testing.T) {
	store := newTestStore(t)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	name, err := store.SaveReceived("req-x", img)
	require.NoError(t, err)
	_, err = store.WriteArtifact("req-x", "car_box.jpg", img)
	require.NoError(t, err)

	require.NoError(t, store.RemoveRequest("req-x", name))

	assert.NoDirExists(t, filepath.Join(store.ArtifactDir(), "req-x"))
	assert.NoFileExists(t, store.ReceivedPath(name))
	assert.NoError(t, store.RemoveRequest("req-x", name), "removing twice is not an error")
}

func TestPrune_RemovesOnlyExpiredEntries(t *testing.T) {
	store := newTestStore(t)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	oldName, err := store.SaveReceived("old", img)
	require.NoError(t, err)
	_, err = store.WriteArtifact("old", "car_box.jpg", img)
	require.NoError(t, err)
	newName, err := store.SaveReceived("new", img)
	require.NoError(t, err)
	_, err = store.WriteArtifact("new", "car_box.jpg", img)
	require.NoError(t, err)

	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(store.ReceivedPath(oldName), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(store.ArtifactDir(), "old"), past, past))

	removed, err := store.Prune(time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, store.ReceivedPath(oldName))
	assert.NoDirExists(t, filepath.Join(store.ArtifactDir(), "old"))
	assert.FileExists(t, store.ReceivedPath(newName))
	assert.DirExists(t, filepath.Join(store.ArtifactDir(), "new"))

	removed, err = store.Prune(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
