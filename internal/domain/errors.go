package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been started.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrCatalogNotFound indicates the map catalog could not be loaded.
	ErrCatalogNotFound = errors.New("map catalog not found")
)
