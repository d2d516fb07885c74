package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"plateserver/internal/dto"
	"plateserver/internal/model"
	"plateserver/internal/repository"
)

// RecognitionRepository implements repository.RecognitionRepository for SQLite.
type RecognitionRepository struct {
	db *DB
}

// NewRecognitionRepository creates a new SQLite recognition repository.
func NewRecognitionRepository(db *DB) *RecognitionRepository {
	return &RecognitionRepository{db: db}
}

const recognitionColumns = `id, request_id, ocr_mode, has_plate, plate_text, plate_count, confidence,
	input_file, detection_artifact, plate_artifact, segmented_artifact, duration_ms, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecognition(s scanner) (*model.Recognition, error) {
	var rec model.Recognition
	err := s.Scan(&rec.ID, &rec.RequestID, &rec.OCRMode, &rec.HasPlate, &rec.PlateText, &rec.PlateCount,
		&rec.Confidence, &rec.InputFile, &rec.DetectionArtifact, &rec.PlateArtifact, &rec.SegmentedArtifact,
		&rec.DurationMs, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Insert adds a new recognition record to the database.
func (r *RecognitionRepository) Insert(rec *model.Recognition) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	result, err := r.db.Conn().Exec(`
		INSERT INTO recognitions (request_id, ocr_mode, has_plate, plate_text, plate_count, confidence,
			input_file, detection_artifact, plate_artifact, segmented_artifact, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RequestID, rec.OCRMode, rec.HasPlate, rec.PlateText, rec.PlateCount, rec.Confidence,
		rec.InputFile, rec.DetectionArtifact, rec.PlateArtifact, rec.SegmentedArtifact, rec.DurationMs, rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert recognition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read recognition id: %w", err)
	}
	rec.ID = id
	return id, nil
}

// GetByRequestID retrieves a recognition by its request id.
func (r *RecognitionRepository) GetByRequestID(requestID string) (*model.Recognition, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rec, err := scanRecognition(r.db.Conn().QueryRow(
		`SELECT `+recognitionColumns+` FROM recognitions WHERE request_id = ?`, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recognition: %w", err)
	}
	return rec, nil
}

// whereClause builds the filter predicate shared by GetAll and GetTotalCount.
func whereClause(filter *dto.RecognitionFilters) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.Plate != "" {
		query += " AND plate_text LIKE ?"
		args = append(args, "%"+filter.Plate+"%")
	}

	if filter.OCRMode != "" {
		query += " AND ocr_mode = ?"
		args = append(args, filter.OCRMode)
	}

	if filter.HasPlate != nil {
		query += " AND has_plate = ?"
		args = append(args, *filter.HasPlate)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.DateAfter.UTC())
	}

	if !filter.DateBefore.IsZero() {
		query += " AND created_at < ?"
		args = append(args, filter.DateBefore.UTC())
	}

	return query, args
}

// GetAll retrieves recognitions matching the filter, newest first.
func (r *RecognitionRepository) GetAll(filter *dto.RecognitionFilters) ([]model.Recognition, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT ` + recognitionColumns + ` FROM recognitions` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recognitions: %w", err)
	}
	defer rows.Close()

	recognitions := []model.Recognition{}
	for rows.Next() {
		rec, err := scanRecognition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recognition: %w", err)
		}
		recognitions = append(recognitions, *rec)
	}

	return recognitions, rows.Err()
}

// GetTotalCount returns the number of recognitions matching the filter.
func (r *RecognitionRepository) GetTotalCount(filter *dto.RecognitionFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM recognitions`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recognitions: %w", err)
	}
	return count, nil
}

// DeleteByRequestID removes a recognition and its detections.
func (r *RecognitionRepository) DeleteByRequestID(requestID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM recognitions WHERE request_id = ?`, requestID)
	if err != nil {
		return fmt.Errorf("failed to delete recognition: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes recognitions created before cutoff.
func (r *RecognitionRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM recognitions WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old recognitions: %w", err)
	}
	return result.RowsAffected()
}

func (r *RecognitionRepository) Ping() error {
	return r.db.Ping()
}
