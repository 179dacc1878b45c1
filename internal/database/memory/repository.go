// Package memory provides a process-local QR code store with the same
// contract as the Postgres repository. Records do not survive a restart.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vadimbarashkov/qr-service/internal/database"
	"github.com/vadimbarashkov/qr-service/internal/models"
	"github.com/vadimbarashkov/qr-service/internal/validation"
)

type QRCodeRepository struct {
	mu     sync.RWMutex
	nextID int64
	byURL  map[string]*models.QRCode
}

func NewQRCodeRepository() *QRCodeRepository {
	return &QRCodeRepository{
		byURL: make(map[string]*models.QRCode),
	}
}

// clone returns a deep copy so callers never share memory with the store.
func clone(qr *models.QRCode) *models.QRCode {
	c := *qr
	c.Image = bytes.Clone(qr.Image)
	if qr.LastRetrievedAt != nil {
		t := *qr.LastRetrievedAt
		c.LastRetrievedAt = &t
	}
	return &c
}

func (r *QRCodeRepository) GetByURL(_ context.Context, url string) (*models.QRCode, error) {
	const op = "database.memory.QRCodeRepository.GetByURL"

	r.mu.RLock()
	defer r.mu.RUnlock()

	qr, ok := r.byURL[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return clone(qr), nil
}

func (r *QRCodeRepository) Create(_ context.Context, qr *models.QRCode) (*models.QRCode, error) {
	const op = "database.memory.QRCodeRepository.Create"

	if !validation.IsURL(qr.URL) {
		return nil, fmt.Errorf("%s: %w", op, database.ErrInvalidURL)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byURL[qr.URL]; ok {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLExists)
	}

	r.nextID++

	rec := clone(qr)
	rec.ID = r.nextID
	rec.LastRetrievedAt = nil
	if rec.FirstGeneratedAt.IsZero() {
		rec.FirstGeneratedAt = time.Now().UTC()
	}

	r.byURL[rec.URL] = rec

	return clone(rec), nil
}

func (r *QRCodeRepository) Save(_ context.Context, qr *models.QRCode) (*models.QRCode, error) {
	const op = "database.memory.QRCodeRepository.Save"

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byURL[qr.URL]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	rec.LastRetrievedAt = nil
	if qr.LastRetrievedAt != nil {
		t := *qr.LastRetrievedAt
		rec.LastRetrievedAt = &t
	}

	return clone(rec), nil
}

func (r *QRCodeRepository) DeleteByURL(_ context.Context, url string) (*models.QRCode, error) {
	const op = "database.memory.QRCodeRepository.DeleteByURL"

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byURL[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	delete(r.byURL, url)

	return rec, nil
}

// Len returns the number of stored records.
func (r *QRCodeRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byURL)
}
