package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/qr-service/internal/database"
	"github.com/vadimbarashkov/qr-service/internal/models"
	"github.com/vadimbarashkov/qr-service/internal/validation"
)

type qrCodeRecord struct {
	ID               int64      `db:"id"`
	URL              string     `db:"url"`
	QRCode           []byte     `db:"qr_code"`
	FirstGeneratedAt time.Time  `db:"first_generated_at"`
	LastRetrievedAt  *time.Time `db:"last_retrieved_at"`
}

func (r *qrCodeRecord) ToQRCode() *models.QRCode {
	return &models.QRCode{
		ID:               r.ID,
		URL:              r.URL,
		Image:            r.QRCode,
		FirstGeneratedAt: r.FirstGeneratedAt,
		LastRetrievedAt:  r.LastRetrievedAt,
	}
}

type QRCodeRepository struct {
	db *sqlx.DB
}

func NewQRCodeRepository(db *sqlx.DB) *QRCodeRepository {
	return &QRCodeRepository{
		db: db,
	}
}

func (r *QRCodeRepository) GetByURL(ctx context.Context, url string) (*models.QRCode, error) {
	const op = "database.postgres.QRCodeRepository.GetByURL"

	rec := new(qrCodeRecord)
	query := `SELECT id, url, qr_code, first_generated_at, last_retrieved_at
		FROM qr_codes
		WHERE url = $1`

	err := r.db.GetContext(ctx, rec, query, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get qr code record: %w", op, err)
	}

	return rec.ToQRCode(), nil
}

// Create inserts qr. The URL is checked again here so that no malformed
// record reaches the table regardless of what the caller validated.
func (r *QRCodeRepository) Create(ctx context.Context, qr *models.QRCode) (*models.QRCode, error) {
	const op = "database.postgres.QRCodeRepository.Create"

	if !validation.IsURL(qr.URL) {
		return nil, fmt.Errorf("%s: %w", op, database.ErrInvalidURL)
	}

	firstGeneratedAt := qr.FirstGeneratedAt
	if firstGeneratedAt.IsZero() {
		firstGeneratedAt = time.Now().UTC()
	}

	rec := new(qrCodeRecord)
	query := `INSERT INTO qr_codes(url, qr_code, first_generated_at)
		VALUES ($1, $2, $3)
		RETURNING id, url, qr_code, first_generated_at, last_retrieved_at`

	err := r.db.GetContext(ctx, rec, query, qr.URL, qr.Image, firstGeneratedAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLExists)
		}

		return nil, fmt.Errorf("%s: failed to create qr code record: %w", op, err)
	}

	return rec.ToQRCode(), nil
}

// Save persists the mutable fields of an existing record. Only the
// retrieval timestamp may change after creation.
func (r *QRCodeRepository) Save(ctx context.Context, qr *models.QRCode) (*models.QRCode, error) {
	const op = "database.postgres.QRCodeRepository.Save"

	rec := new(qrCodeRecord)
	query := `UPDATE qr_codes
		SET last_retrieved_at = $1
		WHERE url = $2
		RETURNING id, url, qr_code, first_generated_at, last_retrieved_at`

	err := r.db.GetContext(ctx, rec, query, qr.LastRetrievedAt, qr.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update qr code record: %w", op, err)
	}

	return rec.ToQRCode(), nil
}

func (r *QRCodeRepository) DeleteByURL(ctx context.Context, url string) (*models.QRCode, error) {
	const op = "database.postgres.QRCodeRepository.DeleteByURL"

	rec := new(qrCodeRecord)
	query := `DELETE FROM qr_codes
		WHERE url = $1
		RETURNING id, url, qr_code, first_generated_at, last_retrieved_at`

	err := r.db.GetContext(ctx, rec, query, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to delete qr code record: %w", op, err)
	}

	return rec.ToQRCode(), nil
}
