package database

import "errors"

var (
	// ErrURLNotFound is returned when no QR code record exists for the requested URL.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExists is returned when an attempt is made to create
	// a QR code record for a URL that already has one.
	ErrURLExists = errors.New("url exists")
	// ErrInvalidURL is returned when a record is rejected because its URL is malformed.
	ErrInvalidURL = errors.New("invalid url")
)
