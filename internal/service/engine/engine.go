// Package engine runs the two stage plate pipeline: locate the plate in the
// uploaded frame, then read its characters with the trained network or with
// Tesseract.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"plateserver/internal/apperror"
	"plateserver/internal/logger"
	"plateserver/internal/service/ai/arabic"

	"github.com/sirupsen/logrus"
)

type Engine struct {
	pool      *Pool
	artifacts ArtifactWriter
	logger    *logger.Logger
	timeout   time.Duration
}

// New creates an engine over an already loaded session pool. A zero timeout
// leaves the caller's context deadline in charge.
func New(pool *Pool, artifacts ArtifactWriter, logger *logger.Logger, timeout time.Duration) *Engine {
	return &Engine{
		pool:      pool,
		artifacts: artifacts,
		logger:    logger,
		timeout:   timeout,
	}
}

// Process runs detection on req.ImagePath and reads the first plate found.
// Finding no plate is a normal outcome, not an error.
func (e *Engine) Process(ctx context.Context, req Request) (*Result, error) {
	if !req.Mode.Valid() {
		return nil, apperror.Validation("Invalid ocr_mode. Use 'trained' or 'tesseract'.")
	}
	if req.RequestID == "" {
		return nil, apperror.Validation("Missing request id")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := e.logger.WithFields(logrus.Fields{"request_id": req.RequestID, "ocr_mode": req.Mode})
	start := time.Now()

	session, err := e.pool.Acquire(ctx)
	if err != nil {
		log.Warnf("No inference session available: %v", err)
		return nil, err
	}
	defer e.pool.Release(session)

	result := &Result{
		RequestID: req.RequestID,
		Mode:      req.Mode,
		Artifacts: Artifacts{Input: req.InputName},
	}

	detection, err := session.Detector.Detect(ctx, req.ImagePath)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("detect plates: %w", err))
	}

	result.PlateCount = len(detection.Crops)
	if len(detection.Crops) == 0 {
		result.Duration = time.Since(start)
		log.Infof("No plate found (%s)", result.Duration)
		return result, nil
	}
	result.HasPlate = true
	if len(detection.Plates) > 0 {
		result.Plate = detection.Plates[0]
		result.Confidence = result.Plate.Confidence
	}

	if result.Artifacts.Detection, err = e.artifacts.WriteArtifact(req.RequestID, DetectionArtifact, detection.Annotated); err != nil {
		return nil, apperror.Wrap(apperror.KindIO, err)
	}
	if result.Artifacts.Plate, err = e.artifacts.WriteArtifact(req.RequestID, PlateArtifact, detection.Crops[0]); err != nil {
		return nil, apperror.Wrap(apperror.KindIO, err)
	}
	platePath := e.artifacts.ArtifactPath(req.RequestID, PlateArtifact)

	switch req.Mode {
	case ModeTesseract:
		text, err := session.Reader.Tesseract(ctx, platePath)
		if err != nil {
			return nil, classify(ctx, fmt.Errorf("tesseract: %w", err))
		}
		result.PlateText = strings.TrimSpace(text)

	case ModeTrained:
		reading, err := session.Reader.Read(ctx, platePath)
		if err != nil {
			return nil, classify(ctx, fmt.Errorf("read characters: %w", err))
		}
		if result.Artifacts.Segmented, err = e.artifacts.WriteArtifact(req.RequestID, SegmentedArtifact, reading.Segmented); err != nil {
			return nil, apperror.Wrap(apperror.KindIO, err)
		}
		result.Characters = reading.Characters
		result.PlateText = arabic.Reshape(reading.Text)
	}

	result.Duration = time.Since(start)
	log.Infof("Plate %q read from %d candidate(s) in %s", result.PlateText, result.PlateCount, result.Duration)
	return result, nil
}

// PoolSize is the number of requests that can be processed at once.
func (e *Engine) PoolSize() int {
	return e.pool.Size()
}

// Close waits for in-flight requests to release their sessions, then frees
// the models. See Pool.Close.
func (e *Engine) Close(ctx context.Context) error {
	return e.pool.Close(ctx)
}

// classify keeps existing kinds and turns context expiry into Unavailable.
func classify(ctx context.Context, err error) error {
	if apperror.KindOf(err) != apperror.KindUnknown {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperror.Wrap(apperror.KindUnavailable, err)
	}
	return apperror.Wrap(apperror.KindInference, err)
}
