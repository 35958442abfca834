// internal/models/errors.go
package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoPricingCoverage      = errors.New("no pricing coverage for window")
	ErrTooManyOccurrences     = errors.New("recurrence exceeds the occurrence limit")
	ErrNoOccurrencesGenerated = errors.New("recurrence generates no occurrences")
	ErrSlotConflict           = errors.New("slot conflicts with an existing booking")
	ErrNotFound               = errors.New("not found")
	ErrInvalidState           = errors.New("invalid state for transition")
	ErrSlotExpired            = errors.New("hold has expired")
	ErrAlreadyStarted         = errors.New("booking has already started")
	ErrAlreadyConfirmed       = errors.New("booking is already confirmed")
	ErrTransientStorage       = errors.New("transient storage failure")
	ErrNotPermitted           = errors.New("actor is not permitted to change this booking")
	ErrInvalidInput           = errors.New("invalid input")
)

type ErrorKind string

const (
	KindNoPricingCoverage      ErrorKind = "NoPricingCoverage"
	KindTooManyOccurrences     ErrorKind = "TooManyOccurrences"
	KindNoOccurrencesGenerated ErrorKind = "NoOccurrencesGenerated"
	KindSlotConflict           ErrorKind = "SlotConflict"
	KindNotFound               ErrorKind = "NotFound"
	KindInvalidState           ErrorKind = "InvalidState"
	KindSlotExpired            ErrorKind = "SlotExpired"
	KindAlreadyStarted         ErrorKind = "AlreadyStarted"
	KindAlreadyConfirmed       ErrorKind = "AlreadyConfirmed"
	KindTransientStorage       ErrorKind = "TransientStorageFailure"
	KindNotPermitted           ErrorKind = "NotPermitted"
	KindInvalidInput           ErrorKind = "InvalidInput"
	KindUnknown                ErrorKind = ""
)

var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrNoPricingCoverage, KindNoPricingCoverage},
	{ErrTooManyOccurrences, KindTooManyOccurrences},
	{ErrNoOccurrencesGenerated, KindNoOccurrencesGenerated},
	{ErrSlotConflict, KindSlotConflict},
	{ErrNotFound, KindNotFound},
	{ErrInvalidState, KindInvalidState},
	{ErrSlotExpired, KindSlotExpired},
	{ErrAlreadyStarted, KindAlreadyStarted},
	{ErrAlreadyConfirmed, KindAlreadyConfirmed},
	{ErrTransientStorage, KindTransientStorage},
	{ErrNotPermitted, KindNotPermitted},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf maps err to its failure kind, or KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, entry := range kindBySentinel {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindUnknown
}

// ConflictError reports the first candidate window that collides with an
// existing booking or with another window of the same batch.
type ConflictError struct {
	Window            Window
	ConflictingWindow Window
	// ConflictingBookingID is empty when the collision is within the batch.
	ConflictingBookingID string
}

func (e *ConflictError) Error() string {
	if e.ConflictingBookingID == "" {
		return fmt.Sprintf("%s: %s overlaps %s in the same request", ErrSlotConflict, e.Window, e.ConflictingWindow)
	}
	return fmt.Sprintf("%s: %s overlaps booking %s %s", ErrSlotConflict, e.Window, e.ConflictingBookingID, e.ConflictingWindow)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSlotConflict
}

// PricingError names the window that no rule fully covers.
type PricingError struct {
	SubFieldID string
	Window     Window
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("%s: sub-field %s %s", ErrNoPricingCoverage, e.SubFieldID, e.Window)
}

func (e *PricingError) Is(target error) bool {
	return target == ErrNoPricingCoverage
}

// StorageError wraps a persistence failure. It is always safe to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransientStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrTransientStorage
}

// InvalidInputf returns an ErrInvalidInput carrying a field-level reason.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
