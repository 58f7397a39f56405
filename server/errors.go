package main

import (
	"errors"
	"fmt"
)

// Error kinds returned by the service layer. Handlers map them onto the
// response envelope; nothing else crosses the HTTP boundary.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("you are not authorised")
	ErrValidation = errors.New("invalid")
)

// notFoundFor tags a store miss with the entity being looked up, so the
// envelope message reads "board not found" rather than a bare miss.
func notFoundFor(entity string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return err
}
