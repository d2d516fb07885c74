package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port              int    `validate:"min=1,max=65535"`
	AppVersion        string `validate:"required"`
	ArtifactDirectory string `validate:"required"`
	ReceivedDirectory string `validate:"required"`
	DatabasePath      string `validate:"required"`
	LogDirectory      string `validate:"required"`

	DetectionWeightsPath string `validate:"required"`
	DetectionConfigPath  string `validate:"required"`
	DetectionClassesPath string
	OCRWeightsPath       string `validate:"required"`
	OCRConfigPath        string `validate:"required"`
	OCRClassesPath       string

	ConfidenceThreshold float64       `validate:"gt=0,lt=1"`
	NMSThreshold        float64       `validate:"gt=0,lte=1"`
	NetworkInputSize    int           `validate:"min=32"`
	TesseractLanguage   string        `validate:"required"`
	EngineWorkers       int           `validate:"min=1,max=64"`
	InferenceTimeout    time.Duration `validate:"gt=0"`

	MaxUploadBytes    int64   `validate:"min=1"`
	MaxImageDimension int     `validate:"min=0"`
	UploadRatePerSec  float64 `validate:"gt=0"`
	UploadBurst       int     `validate:"min=1"`

	APIKey            string
	RetentionMaxAge   time.Duration `validate:"min=0"`
	RetentionSchedule string        `validate:"required"`
}

// Load reads configuration from the environment, picking up a .env file when one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	baseDir := getEnv("BASE_DIR", ".")

	return &Config{
		Port:              getEnvAsInt("PORT", 5000),
		AppVersion:        getEnv("APP_VERSION", "dev"),
		ArtifactDirectory: getEnv("ARTIFACT_DIR", filepath.Join(baseDir, "tmp")),
		ReceivedDirectory: getEnv("RECEIVED_DIR", filepath.Join(baseDir, "received")),
		DatabasePath:      getEnv("DB_PATH", filepath.Join(baseDir, "data", "recognitions.db")),
		LogDirectory:      getEnv("LOG_DIR", filepath.Join(baseDir, "logs")),

		DetectionWeightsPath: getEnv("DETECTION_WEIGHTS", filepath.Join(baseDir, "weights", "detection", "yolov3-detection_final.weights")),
		DetectionConfigPath:  getEnv("DETECTION_CONFIG", filepath.Join(baseDir, "weights", "detection", "yolov3-detection.cfg")),
		DetectionClassesPath: getEnv("DETECTION_CLASSES_PATH", ""),
		OCRWeightsPath:       getEnv("OCR_WEIGHTS", filepath.Join(baseDir, "weights", "ocr", "yolov3-ocr_final.weights")),
		OCRConfigPath:        getEnv("OCR_CONFIG", filepath.Join(baseDir, "weights", "ocr", "yolov3-ocr.cfg")),
		OCRClassesPath:       getEnv("OCR_CLASSES_PATH", filepath.Join(baseDir, "weights", "ocr", "classes.names")),

		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.3),
		NMSThreshold:        getEnvAsFloat("NMS_THRESHOLD", 0.4),
		NetworkInputSize:    getEnvAsInt("NETWORK_INPUT_SIZE", 416),
		TesseractLanguage:   getEnv("TESSERACT_LANGUAGE", "eng"),
		EngineWorkers:       getEnvAsInt("ENGINE_WORKERS", 1),
		InferenceTimeout:    getEnvAsDuration("INFERENCE_TIMEOUT", 60*time.Second),

		MaxUploadBytes:    getEnvAsInt64("MAX_UPLOAD_BYTES", 32<<20),
		MaxImageDimension: getEnvAsInt("MAX_IMAGE_DIMENSION", 4096),
		UploadRatePerSec:  getEnvAsFloat("UPLOAD_RATE_PER_SEC", 5),
		UploadBurst:       getEnvAsInt("UPLOAD_BURST", 10),

		APIKey:            getEnv("API_KEY", ""),
		RetentionMaxAge:   getEnvAsDuration("RETENTION_MAX_AGE", 0),
		RetentionSchedule: getEnv("RETENTION_SCHEDULE", "@every 1h"),
	}
}

// Validate checks the loaded values against their struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
