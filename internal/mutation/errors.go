package mutation

import (
	"errors"
	"fmt"

	"github.com/ramonehamilton/mtg-collection/internal/storage/models"
)

var (
	// ErrDeclined means the user answered no to a confirmation. Nothing was
	// changed; callers treat it as a clean cancellation.
	ErrDeclined = errors.New("declined by user")

	// ErrInsufficientCopies is matched by InsufficientCopiesError.
	ErrInsufficientCopies = errors.New("insufficient copies")

	// ErrNullMove means the source and destination of a move are the same location.
	ErrNullMove = errors.New("source and destination are the same location")

	// ErrInvalidQuantity means a quantity or count was not positive.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrLocationNotFound is matched by LocationNotFoundError.
	ErrLocationNotFound = errors.New("location not found")

	// ErrLocationInUse is matched by LocationInUseError.
	ErrLocationInUse = errors.New("location in use")

	// ErrCardNotFound is matched by CardNotFoundError.
	ErrCardNotFound = errors.New("card not found")
)

// InsufficientCopiesError reports a move of more copies than the source holds.
type InsufficientCopiesError struct {
	CardID    string
	From      int64
	Requested int
	Available int
}

func (e *InsufficientCopiesError) Error() string {
	return fmt.Sprintf("cannot move %d copies of %s from location %d: only %d there",
		e.Requested, e.CardID, e.From, e.Available)
}

func (e *InsufficientCopiesError) Is(target error) bool {
	return target == ErrInsufficientCopies
}

// LocationNotFoundError reports a location that must already exist.
type LocationNotFoundError struct {
	Key models.LocationKey
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("location %s does not exist", e.Key)
}

func (e *LocationNotFoundError) Is(target error) bool {
	return target == ErrLocationNotFound
}

// LocationInUseError blocks undoing the creation of a location that still holds copies.
type LocationInUseError struct {
	LocationID int64
	Entries    int
}

func (e *LocationInUseError) Error() string {
	return fmt.Sprintf("location %d still holds %d entries", e.LocationID, e.Entries)
}

func (e *LocationInUseError) Is(target error) bool {
	return target == ErrLocationInUse
}

// CardNotFoundError reports a catalog id or set/number pair with no card.
type CardNotFoundError struct {
	Ref string
}

func (e *CardNotFoundError) Error() string {
	return fmt.Sprintf("card %s not found in catalog", e.Ref)
}

func (e *CardNotFoundError) Is(target error) bool {
	return target == ErrCardNotFound
}
