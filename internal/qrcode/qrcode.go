// Package qrcode renders strings as PNG QR codes.
package qrcode

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 128
	MaxSize     = 1024
)

// ParseRecoveryLevel maps low, medium, high and highest to their recovery levels.
func ParseRecoveryLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(s) {
	case "low":
		return qrcode.Low, nil
	case "", "medium":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("unknown recovery level %q", s)
	}
}

// Encoder produces PNG images. Output depends only on the content and the
// encoder settings, so the same URL always yields the same bytes.
type Encoder struct {
	size  int
	level qrcode.RecoveryLevel
}

type Option func(*Encoder)

// WithSize sets the image width and height in pixels, clamped to [MinSize, MaxSize].
func WithSize(size int) Option {
	return func(e *Encoder) {
		e.size = min(max(size, MinSize), MaxSize)
	}
}

func WithRecoveryLevel(level qrcode.RecoveryLevel) Option {
	return func(e *Encoder) {
		e.level = level
	}
}

func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		size:  DefaultSize,
		level: qrcode.Medium,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Encode returns content as a PNG QR code.
func (e *Encoder) Encode(content string) ([]byte, error) {
	const op = "qrcode.Encoder.Encode"

	png, err := qrcode.Encode(content, e.level, e.size)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode qr code: %w", op, err)
	}

	return png, nil
}
