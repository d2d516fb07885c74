package storage

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"plateserver/internal/config"
	"plateserver/internal/logger"
)

// JPEGQuality is used for uploads and artifacts alike.
const JPEGQuality = 95

var ErrInvalidName = errors.New("invalid file or request name")

// Store keeps normalised uploads in the received directory and pipeline
// artifacts in one sub-directory per request under the artifact directory.
type Store struct {
	receivedDir string
	artifactDir string
	logger      *logger.Logger
	now         func() time.Time
}

// NewStore creates a Store and ensures both directories exist.
func NewStore(cfg *config.Config, logger *logger.Logger) (*Store, error) {
	for _, dir := range []string{cfg.ReceivedDirectory, cfg.ArtifactDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Store{
		receivedDir: cfg.ReceivedDirectory,
		artifactDir: cfg.ArtifactDirectory,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (s *Store) ReceivedDir() string { return s.receivedDir }
func (s *Store) ArtifactDir() string { return s.artifactDir }

// ReceivedName builds received_<YYYY_MM_DD-HH_MM_SS_micro>_<id prefix>.jpg.
func ReceivedName(t time.Time, requestID string) string {
	short := requestID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("received_%s_%06d_%s.jpg", t.Format("2006_01_02-15_04_05"), t.Nanosecond()/1000, short)
}

// SaveReceived writes img as the upload of requestID and returns its file name.
func (s *Store) SaveReceived(requestID string, img image.Image) (string, error) {
	if !validName(requestID) {
		return "", ErrInvalidName
	}

	name := ReceivedName(s.now(), requestID)
	if err := writeJPEG(filepath.Join(s.receivedDir, name), img); err != nil {
		return "", err
	}

	s.logger.Info("Saved upload %s", name)
	return name, nil
}

func (s *Store) ReceivedPath(name string) string {
	return filepath.Join(s.receivedDir, filepath.Base(name))
}

// WriteArtifact stores img as name inside the namespace of requestID and
// returns "<requestID>/<name>".
func (s *Store) WriteArtifact(requestID, name string, img image.Image) (string, error) {
	if !validName(requestID) || !validName(name) {
		return "", ErrInvalidName
	}
	if img == nil {
		return "", fmt.Errorf("artifact %s has no image", name)
	}

	dir := filepath.Join(s.artifactDir, requestID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}
	if err := writeJPEG(filepath.Join(dir, name), img); err != nil {
		return "", err
	}

	return path.Join(requestID, name), nil
}

func (s *Store) ArtifactPath(requestID, name string) string {
	return filepath.Join(s.artifactDir, filepath.Base(requestID), filepath.Base(name))
}

// RemoveRequest deletes the artifact namespace of requestID and, when given,
// its received upload.
func (s *Store) RemoveRequest(requestID, receivedName string) error {
	if !validName(requestID) {
		return ErrInvalidName
	}

	var errs []error
	if err := os.RemoveAll(filepath.Join(s.artifactDir, requestID)); err != nil {
		errs = append(errs, err)
	}
	if receivedName != "" {
		if !validName(receivedName) {
			errs = append(errs, ErrInvalidName)
		} else if err := os.Remove(filepath.Join(s.receivedDir, receivedName)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Prune removes request namespaces and received uploads last modified before
// now minus maxAge. It returns how many entries were removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-maxAge)

	removed := 0
	var errs []error

	prune := func(dir string, wantDir bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, err)
			return
		}
		for _, entry := range entries {
			if entry.IsDir() != wantDir {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}

	prune(s.artifactDir, true)
	prune(s.receivedDir, false)

	if removed > 0 {
		s.logger.Info("Pruned %d expired uploads and artifact folders", removed)
	}
	return removed, errors.Join(errs...)
}

// writeJPEG encodes into a temporary file and renames it into place so
// readers never observe a partial image.
func writeJPEG(dst string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".partial-*.jpg")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(dst), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(dst), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(dst), err)
	}
	return nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}
