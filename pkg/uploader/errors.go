package uploader

import "errors"

var (
	// ErrNotImage is returned when a dropped file is not an image.
	ErrNotImage = errors.New("dropped file is not an image")

	// ErrNoFile is returned when no file body was supplied.
	ErrNoFile = errors.New("no file provided")
)
