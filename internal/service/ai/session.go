package ai

import (
	"plateserver/internal/config"
	"plateserver/internal/logger"
	"plateserver/internal/service/engine"
)

// SessionFactory loads one detector and one reader per engine session.
func SessionFactory(cfg *config.Config, logger *logger.Logger) engine.SessionFactory {
	return func(id int) (*engine.Session, error) {
		detector, err := NewPlateDetector(cfg, logger)
		if err != nil {
			return nil, err
		}

		reader, err := NewPlateReader(cfg, logger)
		if err != nil {
			detector.Close()
			return nil, err
		}

		logger.Info("Inference session %d ready", id)
		return &engine.Session{Detector: detector, Reader: reader}, nil
	}
}
