package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"plateserver/internal/app"
	"plateserver/internal/config"
	"plateserver/internal/dto"
	"plateserver/internal/logger"
	"plateserver/internal/service/engine"
	"plateserver/internal/service/imageio"
	"plateserver/internal/service/storage"

	"github.com/google/uuid"
)

func main() {
	os.Exit(run())
}

// run returns the exit code so deferred cleanup runs before the process exits.
func run() int {
	imagePath := flag.String("image", "", "Image to recognise")
	modeFlag := flag.String("mode", string(engine.ModeTrained), "OCR mode: trained or tesseract")
	flag.Parse()

	if *imagePath == "" {
		flag.Usage()
		return 2
	}

	mode, err := engine.ParseOCRMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg := config.Load()
	cfg.EngineWorkers = 1
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	// console output stays clean for the JSON result
	logs, err := logger.New(cfg.LogDirectory, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logs.Close()

	store, err := storage.NewStore(cfg, logs)
	if err != nil {
		logs.Error("Failed to prepare storage: %v", err)
		return 1
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		logs.Error("Failed to read %s: %v", *imagePath, err)
		return 1
	}
	img, _, err := imageio.Normalize(data, cfg.MaxImageDimension)
	if err != nil {
		logs.Error("Failed to decode %s: %v", *imagePath, err)
		return 1
	}

	requestID := uuid.NewString()
	inputName, err := store.SaveReceived(requestID, img)
	if err != nil {
		logs.Error("Failed to store input: %v", err)
		return 1
	}

	eng, err := app.NewEngine(cfg, store, logs)
	if err != nil {
		logs.Error("Failed to initialize engine: %v", err)
		return 1
	}
	defer func() {
		if err := eng.Close(context.Background()); err != nil {
			logs.Error("Error releasing models: %v", err)
		}
	}()

	result, err := eng.Process(context.Background(), engine.Request{
		RequestID: requestID,
		ImagePath: store.ReceivedPath(inputName),
		InputName: inputName,
		Mode:      mode,
	})
	if err != nil {
		logs.Error("Recognition failed: %v", err)
		return 1
	}

	out := dto.UploadResponse{
		Result:    result.PlateText,
		PlateText: result.PlateText,
		HasPlate:  result.HasPlate,
		OCRMode:   string(result.Mode),
		RequestID: result.RequestID,
		Artifacts: dto.NewArtifactLinks(result.Artifacts.Input, result.Artifacts.Detection,
			result.Artifacts.Plate, result.Artifacts.Segmented, time.Now().UnixMilli()),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		logs.Error("Failed to encode result: %v", err)
		return 1
	}
	return 0
}
