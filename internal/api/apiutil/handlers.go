package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Playfield/internal/models"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e FieldError) Is(target error) bool {
	return target == models.ErrInvalidInput
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Kind    models.ErrorKind `json:"kind"`
	Message string           `json:"message"`
	// Conflict details, present for SlotConflict only.
	Window               *models.Window `json:"window,omitempty"`
	ConflictingWindow    *models.Window `json:"conflicting_window,omitempty"`
	ConflictingBookingID string         `json:"conflicting_booking_id,omitempty"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindSlotConflict:
		return http.StatusConflict
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindSlotExpired:
		return http.StatusGone
	case models.KindNoPricingCoverage, models.KindTooManyOccurrences, models.KindNoOccurrencesGenerated:
		return http.StatusUnprocessableEntity
	case models.KindInvalidState, models.KindAlreadyStarted, models.KindAlreadyConfirmed:
		return http.StatusConflict
	case models.KindTransientStorage:
		return http.StatusServiceUnavailable
	case models.KindNotPermitted:
		return http.StatusForbidden
	case models.KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorBody with the status for its kind.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var handlerErr HandlerError
	if errors.As(err, &handlerErr) && models.KindOf(err) == models.KindUnknown {
		if writeErr := WriteJSON(w, handlerErr.Status, ErrorBody{Message: handlerErr.Message}); writeErr != nil {
			logger.Error().Err(writeErr).Msg("Failed to write error response")
		}
		return
	}

	kind := models.KindOf(err)
	status := StatusFor(kind)
	body := ErrorBody{Kind: kind, Message: err.Error()}

	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		body.Window = &conflict.Window
		body.ConflictingWindow = &conflict.ConflictingWindow
		body.ConflictingBookingID = conflict.ConflictingBookingID
	}

	switch {
	case status >= http.StatusInternalServerError:
		if kind == models.KindUnknown {
			body.Message = "internal error"
		}
		logger.Error().Err(err).Str("kind", string(kind)).Msg("Request failed")
	default:
		logger.Debug().Err(err).Str("kind", string(kind)).Int("status", status).Msg("Request rejected")
	}
	if kind == models.KindTransientStorage {
		w.Header().Set("Retry-After", "1")
	}

	if writeErr := WriteJSON(w, status, body); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// WriteOK writes payload with status and logs encoding failures.
func WriteOK(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}
