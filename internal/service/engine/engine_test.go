package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"plateserver/internal/apperror"
	"plateserver/internal/config"
	"plateserver/internal/logger"
	"plateserver/internal/service/ai/yolo"
	"plateserver/internal/service/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDetector paints every crop with shade(imagePath) so concurrent
// requests can be told apart by pixel value.
type fakeDetector struct {
	plates int
	err    error
	shade  func(imagePath string) uint8
	delay  time.Duration
	closed atomic.Bool
}

func (d *fakeDetector) Detect(ctx context.Context, imagePath string) (*PlateDetection, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}

	shade := uint8(128)
	if d.shade != nil {
		shade = d.shade(imagePath)
	}

	det := &PlateDetection{Annotated: solid(64, 48, shade)}
	for i := 0; i < d.plates; i++ {
		det.Plates = append(det.Plates, yolo.Detection{Box: image.Rect(10, 10, 50, 25), Confidence: 0.9 - float32(i)*0.1, Label: "plate"})
		det.Crops = append(det.Crops, solid(40, 15, shade))
	}
	return det, nil
}

func (d *fakeDetector) Close() error {
	d.closed.Store(true)
	return nil
}

type fakeReader struct {
	text      string
	tesseract string
	err       error
	echoShade bool
	readPaths []string
	mu        sync.Mutex
	closed    atomic.Bool
}

func (r *fakeReader) Read(ctx context.Context, platePath string) (*PlateReading, error) {
	r.record(platePath)
	if r.err != nil {
		return nil, r.err
	}
	text := r.text
	if r.echoShade {
		text = fmt.Sprint(shadeOf(platePath))
	}
	return &PlateReading{
		Characters: []yolo.Detection{{Box: image.Rect(1, 1, 5, 10), Label: text, Confidence: 0.8}},
		Segmented:  solid(40, 15, 10),
		Text:       text,
	}, nil
}

func (r *fakeReader) Tesseract(ctx context.Context, platePath string) (string, error) {
	r.record(platePath)
	if r.err != nil {
		return "", r.err
	}
	return r.tesseract, nil
}

func (r *fakeReader) Close() error {
	r.closed.Store(true)
	return nil
}

func (r *fakeReader) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readPaths = append(r.readPaths, path)
}

func solid(w, h int, shade uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	return img
}

// shadeOf reads back the grey level of a stored JPEG.
func shadeOf(path string) uint8 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		return 0
	}
	r, _, _, _ := img.At(img.Bounds().Dx()/2, img.Bounds().Dy()/2).RGBA()
	return uint8(r >> 8)
}

func newTestEngine(t *testing.T, size int, det *fakeDetector, reader *fakeReader) (*Engine, *storage.Store) {
	t.Helper()
	base := t.TempDir()

	log, err := logger.New(filepath.Join(base, "logs"), os.Stdout)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	store, err := storage.NewStore(&config.Config{
		ReceivedDirectory: filepath.Join(base, "received"),
		ArtifactDirectory: filepath.Join(base, "tmp"),
	}, log)
	require.NoError(t, err)

	pool, err := NewPool(size, func(id int) (*Session, error) {
		return &Session{Detector: det, Reader: reader}, nil
	})
	require.NoError(t, err)

	return New(pool, store, log, 0), store
}

func TestParseOCRMode(t *testing.T) {
	tests := []struct {
		in      string
		want    OCRMode
		wantErr bool
	}{
		{"", ModeTrained, false},
		{"trained", ModeTrained, false},
		{"  TESSERACT ", ModeTesseract, false},
		{"Trained\n", ModeTrained, false},
		{"foo", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOCRMode(tt.in)
		if tt.wantErr {
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestProcess_NoPlate(t *testing.T) {
	reader := &fakeReader{text: "unused"}
	eng, store := newTestEngine(t, 1, &fakeDetector{plates: 0}, reader)

	res, err := eng.Process(context.Background(), Request{RequestID: "r1", ImagePath: "in.jpg", InputName: "received_x.jpg", Mode: ModeTrained})

	require.NoError(t, err)
	assert.False(t, res.HasPlate)
	assert.Equal(t, "", res.PlateText)
	assert.Equal(t, "received_x.jpg", res.Artifacts.Input)
	assert.Empty(t, res.Artifacts.Detection)
	assert.Empty(t, res.Artifacts.Plate)
	assert.Empty(t, res.Artifacts.Segmented)
	assert.Empty(t, reader.readPaths, "reader must not run without a plate")
	assert.NoDirExists(t, filepath.Join(store.ArtifactDir(), "r1"))
}

func TestProcess_TrainedPath(t *testing.T) {
	reader := &fakeReader{text: "12345\u06286"}
	eng, store := newTestEngine(t, 1, &fakeDetector{plates: 2}, reader)

	res, err := eng.Process(context.Background(), Request{RequestID: "r2", ImagePath: "in.jpg", InputName: "in.jpg", Mode: ModeTrained})

	require.NoError(t, err)
	assert.True(t, res.HasPlate)
	assert.Equal(t, 2, res.PlateCount)
	assert.InDelta(t, 0.9, res.Confidence, 1e-6)
	assert.Equal(t, "12345\uFE8F6", res.PlateText)
	assert.Equal(t, "r2/car_box.jpg", res.Artifacts.Detection)
	assert.Equal(t, "r2/plate_box.jpg", res.Artifacts.Plate)
	assert.Equal(t, "r2/plate_segmented.jpg", res.Artifacts.Segmented)
	assert.Len(t, res.Characters, 1)

	assert.FileExists(t, store.ArtifactPath("r2", DetectionArtifact))
	assert.FileExists(t, store.ArtifactPath("r2", SegmentedArtifact))
	require.Len(t, reader.readPaths, 1)
	assert.Equal(t, store.ArtifactPath("r2", PlateArtifact), reader.readPaths[0])
}

func TestProcess_TesseractPath(t *testing.T) {
	reader := &fakeReader{tesseract: "  AB 123 \n"}
	eng, store := newTestEngine(t, 1, &fakeDetector{plates: 1}, reader)

	res, err := eng.Process(context.Background(), Request{RequestID: "r3", ImagePath: "in.jpg", InputName: "in.jpg", Mode: ModeTesseract})

	require.NoError(t, err)
	assert.True(t, res.HasPlate)
	assert.Equal(t, "AB 123", res.PlateText)
	assert.Equal(t, "r3/car_box.jpg", res.Artifacts.Detection)
	assert.Equal(t, "r3/plate_box.jpg", res.Artifacts.Plate)
	assert.Empty(t, res.Artifacts.Segmented)
	assert.NoFileExists(t, store.ArtifactPath("r3", SegmentedArtifact))
}

func TestProcess_RejectsInvalidModeWithoutRunning(t *testing.T) {
	det := &fakeDetector{plates: 1, err: errors.New("must not be called")}
	eng, _ := newTestEngine(t, 1, det, &fakeReader{})

	_, err := eng.Process(context.Background(), Request{RequestID: "r4", Mode: OCRMode("foo")})

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestProcess_ModelFailureIsInferenceError(t *testing.T) {
	eng, _ := newTestEngine(t, 1, &fakeDetector{err: errors.New("cv::dnn exception")}, &fakeReader{})

	_, err := eng.Process(context.Background(), Request{RequestID: "r5", ImagePath: "in.jpg", Mode: ModeTrained})

	assert.Equal(t, apperror.KindInference, apperror.KindOf(err))
	_, msg := apperror.Public(err)
	assert.NotContains(t, msg, "cv::dnn")
}

func TestProcess_ReaderFailureIsInferenceError(t *testing.T) {
	eng, _ := newTestEngine(t, 1, &fakeDetector{plates: 1}, &fakeReader{err: errors.New("tesseract missing")})

	_, err := eng.Process(context.Background(), Request{RequestID: "r6", ImagePath: "in.jpg", Mode: ModeTesseract})

	assert.Equal(t, apperror.KindInference, apperror.KindOf(err))
}

func TestProcess_BusyPoolHonoursContext(t *testing.T) {
	det := &fakeDetector{plates: 0, delay: 200 * time.Millisecond}
	eng, _ := newTestEngine(t, 1, det, &fakeReader{})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		close(started)
		eng.Process(context.Background(), Request{RequestID: "slow", ImagePath: "in.jpg", Mode: ModeTrained})
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := eng.Process(ctx, Request{RequestID: "waiting", ImagePath: "in.jpg", Mode: ModeTrained})

	assert.Equal(t, apperror.KindUnavailable, apperror.KindOf(err))
	<-done
}

func TestProcess_ConcurrentRequestsDoNotShareArtifacts(t *testing.T) {
	det := &fakeDetector{
		plates: 1,
		shade: func(imagePath string) uint8 {
			if filepath.Base(imagePath) == "dark.jpg" {
				return 30
			}
			return 220
		},
		delay: 10 * time.Millisecond,
	}
	reader := &fakeReader{echoShade: true}
	eng, _ := newTestEngine(t, 4, det, reader)

	const n = 16
	results := make([]*Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := "light.jpg"
			if i%2 == 0 {
				input = "dark.jpg"
			}
			res, err := eng.Process(context.Background(), Request{
				RequestID: fmt.Sprintf("req-%02d", i),
				ImagePath: input,
				Mode:      ModeTrained,
			})
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, res := range results {
		require.NotNil(t, res)
		prefix := fmt.Sprintf("req-%02d/", i)
		assert.Equal(t, prefix+PlateArtifact, res.Artifacts.Plate)
		assert.False(t, seen[res.Artifacts.Plate], "artifact path reused")
		seen[res.Artifacts.Plate] = true

		var got uint8
		fmt.Sscan(res.PlateText, &got)
		if i%2 == 0 {
			assert.InDelta(t, 30, int(got), 6, "request %d read another request's plate", i)
		} else {
			assert.InDelta(t, 220, int(got), 6, "request %d read another request's plate", i)
		}
	}
}

func TestPool_ClosesSessionsWhenConstructionFails(t *testing.T) {
	var made []*fakeDetector
	var mu sync.Mutex

	_, err := NewPool(3, func(id int) (*Session, error) {
		if id == 1 {
			return nil, errors.New("weights missing")
		}
		d := &fakeDetector{}
		mu.Lock()
		made = append(made, d)
		mu.Unlock()
		return &Session{Detector: d, Reader: &fakeReader{}}, nil
	})

	require.Error(t, err)
	for _, d := range made {
		assert.True(t, d.closed.Load())
	}
}

func TestEngine_CloseReleasesModels(t *testing.T) {
	det := &fakeDetector{}
	reader := &fakeReader{}
	eng, _ := newTestEngine(t, 2, det, reader)

	assert.Equal(t, 2, eng.PoolSize())
	require.NoError(t, eng.Close(context.Background()))
	assert.True(t, det.closed.Load())
	assert.True(t, reader.closed.Load())

	_, err := eng.Process(context.Background(), Request{RequestID: "late", ImagePath: "in.jpg", Mode: ModeTrained})
	assert.Equal(t, apperror.KindUnavailable, apperror.KindOf(err))
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_CloseWaitsForHeldSessions(t *testing.T) {
	detectors := []*fakeDetector{{}, {}}
	pool, err := NewPool(2, func(id int) (*Session, error) {
		return &Session{Detector: detectors[id], Reader: &fakeReader{}}, nil
	})
	require.NoError(t, err)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- pool.Close(context.Background()) }()

	// the free session is released, the held one is not
	assert.Eventually(t, func() bool { return detectors[0].closed.Load() || detectors[1].closed.Load() },
		time.Second, 5*time.Millisecond)
	heldDetector := held.Detector.(*fakeDetector)
	assert.False(t, heldDetector.closed.Load())
	select {
	case <-done:
		t.Fatal("Close returned while a session was still held")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(held)
	require.NoError(t, <-done)
	assert.True(t, heldDetector.closed.Load())
}

func TestPool_CloseGivesUpOnHeldSessions(t *testing.T) {
	det := &fakeDetector{}
	pool, err := NewPool(1, func(id int) (*Session, error) {
		return &Session{Detector: det, Reader: &fakeReader{}}, nil
	})
	require.NoError(t, err)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = pool.Close(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, det.closed.Load())
	pool.Release(held)
	assert.False(t, det.closed.Load())
}
