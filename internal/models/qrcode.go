package models

import "time"

// QRCode is the persisted QR code record of a single URL.
type QRCode struct {
	// ID is the surrogate identifier of the record in the store.
	ID int64
	// URL is the encoded URL. It is unique across all records.
	URL string
	// Image holds the PNG encoding of URL. It is written once on creation.
	Image []byte
	// FirstGeneratedAt is the time the record was created.
	FirstGeneratedAt time.Time
	// LastRetrievedAt is the time the record was last served from the store, nil if never.
	LastRetrievedAt *time.Time
}
