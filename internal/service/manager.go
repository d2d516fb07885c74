package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"plateserver/internal/apperror"
	"plateserver/internal/config"
	"plateserver/internal/dto"
	"plateserver/internal/logger"
	"plateserver/internal/model"
	"plateserver/internal/repository"
	"plateserver/internal/service/ai/yolo"
	"plateserver/internal/service/engine"
	"plateserver/internal/service/imageio"
	"plateserver/internal/service/storage"
	"plateserver/internal/service/websocket"
)

// EventRecognition is the type of events broadcast after every upload.
const EventRecognition = "recognition"

// Recognizer is the part of the inference engine the manager depends on.
type Recognizer interface {
	Process(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Manager ties an upload to storage, the engine, history and live viewers.
type Manager struct {
	engine       Recognizer
	store        *storage.Store
	recognitions repository.RecognitionRepository
	detections   repository.DetectionRepository
	hub          *websocket.HubService
	logger       *logger.Logger
	maxDimension int
}

type UploadInput struct {
	RequestID string
	Mode      engine.OCRMode
	Filename  string
	Data      []byte
}

// UploadOutcome is the engine result together with the moment it finished,
// used to stamp artifact links.
type UploadOutcome struct {
	Result  *engine.Result
	Stamp   int64
	Links   dto.ArtifactLinks
	Created time.Time
}

func NewManager(cfg *config.Config, recognizer Recognizer, store *storage.Store,
	recognitions repository.RecognitionRepository, detections repository.DetectionRepository,
	hub *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		engine:       recognizer,
		store:        store,
		recognitions: recognitions,
		detections:   detections,
		hub:          hub,
		logger:       logger,
		maxDimension: cfg.MaxImageDimension,
	}
}

// HandleUpload decodes and stores the upload, runs the engine and records the
// outcome. Nothing is written when the mode or the image is rejected.
func (m *Manager) HandleUpload(ctx context.Context, in UploadInput) (*UploadOutcome, error) {
	if !in.Mode.Valid() {
		return nil, apperror.Validation("Invalid ocr_mode. Use 'trained' or 'tesseract'.")
	}

	img, format, err := imageio.Normalize(in.Data, m.maxDimension)
	if err != nil {
		switch {
		case errors.Is(err, imageio.ErrTooLarge):
			return nil, apperror.Wrap(apperror.KindTooLarge, err)
		default:
			return nil, apperror.Wrap(apperror.KindDecode, err)
		}
	}

	inputName, err := m.store.SaveReceived(in.RequestID, img)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			return nil, apperror.Validation("Invalid request id")
		}
		return nil, apperror.Wrap(apperror.KindIO, err)
	}
	m.logger.Info("Upload %s (%s, %s) stored as %s", in.RequestID, in.Filename, format, inputName)

	result, err := m.engine.Process(ctx, engine.Request{
		RequestID: in.RequestID,
		ImagePath: m.store.ReceivedPath(inputName),
		InputName: inputName,
		Mode:      in.Mode,
	})
	if err != nil {
		if rmErr := m.store.RemoveRequest(in.RequestID, ""); rmErr != nil {
			m.logger.Warning("Could not remove artifacts of failed request %s: %v", in.RequestID, rmErr)
		}
		return nil, err
	}

	now := time.Now()
	outcome := &UploadOutcome{
		Result:  result,
		Stamp:   now.UnixMilli(),
		Created: now,
	}
	outcome.Links = dto.NewArtifactLinks(result.Artifacts.Input, result.Artifacts.Detection,
		result.Artifacts.Plate, result.Artifacts.Segmented, outcome.Stamp)

	if err := m.record(result, now); err != nil {
		m.logger.Error("Failed to store recognition %s: %v", in.RequestID, err)
	}
	m.publish(result, outcome)

	return outcome, nil
}

// record persists the recognition and its boxes. History is best effort: a
// failure here does not fail the upload.
func (m *Manager) record(result *engine.Result, created time.Time) error {
	if m.recognitions == nil {
		return nil
	}

	rec := &model.Recognition{
		RequestID:         result.RequestID,
		OCRMode:           string(result.Mode),
		HasPlate:          result.HasPlate,
		PlateText:         result.PlateText,
		PlateCount:        result.PlateCount,
		Confidence:        float64(result.Confidence),
		InputFile:         result.Artifacts.Input,
		DetectionArtifact: result.Artifacts.Detection,
		PlateArtifact:     result.Artifacts.Plate,
		SegmentedArtifact: result.Artifacts.Segmented,
		DurationMs:        result.Duration.Milliseconds(),
		CreatedAt:         created,
	}
	id, err := m.recognitions.Insert(rec)
	if err != nil {
		return fmt.Errorf("insert recognition: %w", err)
	}

	if m.detections == nil || !result.HasPlate {
		return nil
	}
	boxes := make([]model.Detection, 0, len(result.Characters)+1)
	boxes = append(boxes, toModel(id, model.DetectionKindPlate, result.Plate))
	for _, c := range result.Characters {
		boxes = append(boxes, toModel(id, model.DetectionKindCharacter, c))
	}
	if err := m.detections.InsertBatch(boxes); err != nil {
		return fmt.Errorf("insert detections: %w", err)
	}
	return nil
}

func toModel(recognitionID int64, kind string, d yolo.Detection) model.Detection {
	return model.Detection{
		RecognitionID: recognitionID,
		Kind:          kind,
		Label:         d.Label,
		X:             d.Box.Min.X,
		Y:             d.Box.Min.Y,
		Width:         d.Box.Dx(),
		Height:        d.Box.Dy(),
		Confidence:    float64(d.Confidence),
	}
}

func (m *Manager) publish(result *engine.Result, outcome *UploadOutcome) {
	if m.hub == nil {
		return
	}

	msg, err := json.Marshal(dto.RecognitionEvent{
		Type:      EventRecognition,
		RequestID: result.RequestID,
		HasPlate:  result.HasPlate,
		PlateText: result.PlateText,
		OCRMode:   string(result.Mode),
		Artifacts: outcome.Links,
		Timestamp: outcome.Created,
	})
	if err != nil {
		m.logger.Error("Failed to encode recognition event: %v", err)
		return
	}
	m.hub.Broadcast(msg)
}

// Recognition loads one history entry with its boxes.
func (m *Manager) Recognition(requestID string) (*dto.RecognitionInfo, error) {
	if m.recognitions == nil {
		return nil, apperror.NotFound("Recognition not found")
	}

	rec, err := m.recognitions.GetByRequestID(requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Recognition not found")
		}
		return nil, apperror.Wrap(apperror.KindIO, err)
	}

	var boxes []model.Detection
	if m.detections != nil {
		boxes, err = m.detections.GetByRecognitionID(rec.ID)
		if err != nil {
			m.logger.Error("Error getting detections for %s: %v", requestID, err)
		}
	}

	info := dto.NewRecognitionInfo(rec, boxes)
	return &info, nil
}

// DeleteRecognition removes the history entry, the stored upload and the
// request's artifact folder.
func (m *Manager) DeleteRecognition(requestID string) error {
	if m.recognitions == nil {
		return apperror.NotFound("Recognition not found")
	}

	rec, err := m.recognitions.GetByRequestID(requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Recognition not found")
		}
		return apperror.Wrap(apperror.KindIO, err)
	}

	if err := m.store.RemoveRequest(rec.RequestID, rec.InputFile); err != nil {
		m.logger.Warning("Failed to delete files of %s: %v", requestID, err)
	}
	if err := m.recognitions.DeleteByRequestID(rec.RequestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Recognition not found")
		}
		return apperror.Wrap(apperror.KindIO, err)
	}

	m.logger.Info("Deleted recognition %s", requestID)
	return nil
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

func (m *Manager) GetStore() *storage.Store {
	return m.store
}
