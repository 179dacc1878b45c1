package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/qr-service/internal/database"
	"github.com/vadimbarashkov/qr-service/internal/metrics"
	"github.com/vadimbarashkov/qr-service/internal/models"
	"github.com/vadimbarashkov/qr-service/internal/safebrowsing"
	"github.com/vadimbarashkov/qr-service/internal/validation"
)

var (
	// ErrInvalidURL is returned when the URL is not an absolute URL with a host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrUnsafeURL is matched by every *UnsafeURLError.
	ErrUnsafeURL = errors.New("unsafe url")
	// ErrUnreachableURL is returned when the URL does not answer the existence probe.
	ErrUnreachableURL = errors.New("url does not exist")
)

// UnsafeURLError carries the verdict that caused a URL to be rejected.
// A failed lookup is reported the same way as a positive match.
type UnsafeURLError struct {
	Verdict safebrowsing.Verdict
}

func (e *UnsafeURLError) Error() string {
	if e.Verdict.Failed() {
		return fmt.Sprintf("%s: safety check failed: %v", ErrUnsafeURL, e.Verdict.Err)
	}
	return fmt.Sprintf("%s: %d threat match(es)", ErrUnsafeURL, len(e.Verdict.Matches))
}

func (e *UnsafeURLError) Is(target error) bool {
	return target == ErrUnsafeURL
}

func (e *UnsafeURLError) Unwrap() error {
	return e.Verdict.Err
}

// QRCodeRepository defines the store operations the service relies on.
type QRCodeRepository interface {
	// GetByURL returns the record of url or database.ErrURLNotFound.
	GetByURL(ctx context.Context, url string) (*models.QRCode, error)

	// Create validates and inserts a new record.
	// Returns database.ErrInvalidURL or database.ErrURLExists on rejection.
	Create(ctx context.Context, qr *models.QRCode) (*models.QRCode, error)

	// Save persists the retrieval timestamp of an existing record.
	Save(ctx context.Context, qr *models.QRCode) (*models.QRCode, error)

	// DeleteByURL removes and returns the record of url or database.ErrURLNotFound.
	DeleteByURL(ctx context.Context, url string) (*models.QRCode, error)
}

type SafetyChecker interface {
	Check(ctx context.Context, url string) safebrowsing.Verdict
}

type ExistenceChecker interface {
	Exists(ctx context.Context, url string) bool
}

type Encoder interface {
	Encode(content string) ([]byte, error)
}

// QRService runs the validation pipeline in front of the QR code store.
type QRService struct {
	repo    QRCodeRepository
	safety  SafetyChecker
	exists  ExistenceChecker
	encoder Encoder
	now     func() time.Time
}

func NewQRService(repo QRCodeRepository, safety SafetyChecker, exists ExistenceChecker, encoder Encoder) *QRService {
	return &QRService{
		repo:    repo,
		safety:  safety,
		exists:  exists,
		encoder: encoder,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Generate returns the QR code of rawURL, creating it on first request.
//
// The steps run strictly in order: syntax check, safety check, existence
// probe, store lookup, then either encode and create or touch and save.
func (s *QRService) Generate(ctx context.Context, rawURL string) (*models.QRCode, error) {
	const op = "service.QRService.Generate"

	if !validation.IsURL(rawURL) {
		metrics.URLsRejectedTotal.WithLabelValues(metrics.ReasonInvalid).Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidURL)
	}

	if verdict := s.safety.Check(ctx, rawURL); !verdict.Safe {
		reason := metrics.ReasonUnsafe
		if verdict.Failed() {
			reason = metrics.ReasonCheckFailed
		}
		metrics.URLsRejectedTotal.WithLabelValues(reason).Inc()

		return nil, fmt.Errorf("%s: %w", op, &UnsafeURLError{Verdict: verdict})
	}

	if !s.exists.Exists(ctx, rawURL) {
		metrics.URLsRejectedTotal.WithLabelValues(metrics.ReasonUnreachable).Inc()
		return nil, fmt.Errorf("%s: %w", op, ErrUnreachableURL)
	}

	qr, err := s.repo.GetByURL(ctx, rawURL)
	switch {
	case err == nil:
		touched, err := s.touch(ctx, qr)
		// A concurrent delete between lookup and save counts as a miss.
		if !errors.Is(err, database.ErrURLNotFound) {
			return touched, err
		}
	case !errors.Is(err, database.ErrURLNotFound):
		return nil, fmt.Errorf("%s: failed to look up qr code: %w", op, err)
	}

	return s.create(ctx, rawURL)
}

func (s *QRService) create(ctx context.Context, rawURL string) (*models.QRCode, error) {
	const op = "service.QRService.create"

	image, err := s.encoder.Encode(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	qr, err := s.repo.Create(ctx, &models.QRCode{
		URL:              rawURL,
		Image:            image,
		FirstGeneratedAt: s.now(),
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInvalidURL):
			metrics.URLsRejectedTotal.WithLabelValues(metrics.ReasonInvalid).Inc()
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidURL, err)
		case errors.Is(err, database.ErrURLExists):
			// A concurrent request created the record first; serve that one.
			existing, err := s.repo.GetByURL(ctx, rawURL)
			if err != nil {
				return nil, fmt.Errorf("%s: failed to look up concurrently created qr code: %w", op, err)
			}
			return s.touch(ctx, existing)
		default:
			return nil, fmt.Errorf("%s: failed to create qr code: %w", op, err)
		}
	}

	metrics.QRCodesGeneratedTotal.Inc()

	return qr, nil
}

func (s *QRService) touch(ctx context.Context, qr *models.QRCode) (*models.QRCode, error) {
	const op = "service.QRService.touch"

	now := s.now()
	qr.LastRetrievedAt = &now

	saved, err := s.repo.Save(ctx, qr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to save qr code: %w", op, err)
	}

	metrics.QRCodesRetrievedTotal.Inc()

	return saved, nil
}

// Delete removes the QR code of rawURL and returns the removed record.
func (s *QRService) Delete(ctx context.Context, rawURL string) (*models.QRCode, error) {
	const op = "service.QRService.Delete"

	qr, err := s.repo.DeleteByURL(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to delete qr code: %w", op, err)
	}

	metrics.QRCodesDeletedTotal.Inc()

	return qr, nil
}
