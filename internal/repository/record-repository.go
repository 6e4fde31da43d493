package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"chekbot/internal/domain"

	"go.uber.org/zap"
)

// RecordRepository mirrors completed user records into SQLite as a
// write-through audit archive. The in-memory stores stay authoritative; the
// archive only backs the admin API and post-hoc inspection.
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRecordRepository(db *sql.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// SaveRecord inserts or replaces the archived copy of a record.
func (r *RecordRepository) SaveRecord(rec *domain.UserRecord) error {
	query := `
		INSERT OR REPLACE INTO user_records (
			check_number, fio, address, phone, amount, uids, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		rec.CheckNumber, rec.FIO, rec.Address, rec.Phone, rec.Amount,
		strings.Join(rec.UIDs, ","), rec.CreatedAt, time.Now(),
	)

	if err != nil {
		r.logger.Error("Failed to archive user record",
			zap.Error(err),
			zap.String("check_number", rec.CheckNumber))
		return fmt.Errorf("failed to archive user record: %w", err)
	}

	return nil
}

// ListRecords returns all archived records ordered by check number.
func (r *RecordRepository) ListRecords() ([]domain.UserRecord, error) {
	query := `
		SELECT check_number, fio, address, phone, amount, uids, created_at, updated_at
		FROM user_records
		ORDER BY check_number`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list user records", zap.Error(err))
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}
	defer rows.Close()

	var records []domain.UserRecord
	for rows.Next() {
		var rec domain.UserRecord
		var uids string

		if err := rows.Scan(
			&rec.CheckNumber, &rec.FIO, &rec.Address, &rec.Phone, &rec.Amount,
			&uids, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			r.logger.Error("Failed to scan user record", zap.Error(err))
			return nil, fmt.Errorf("failed to scan user record: %w", err)
		}

		if uids != "" {
			rec.UIDs = strings.Split(uids, ",")
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user records: %w", err)
	}

	return records, nil
}
