package mapping

import (
	"errors"
	"net/http"

	"github.com/eslsoft/wordladder/internal/entity"
)

// Error codes carried in the HTTP error envelope.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeUnavailable     = "unavailable"
	CodeInternal        = "internal"
)

// ToHTTPError maps a usecase error onto an HTTP status and envelope code.
func ToHTTPError(err error) (int, string) {
	var storageErr *entity.StorageError
	var catalogErr *entity.CatalogError
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, entity.ErrProgressNotFound), errors.Is(err, entity.ErrWordNotFound),
		errors.Is(err, entity.ErrSessionNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, entity.ErrInvalidMode), errors.Is(err, entity.ErrInvalidUserID),
		errors.Is(err, entity.ErrInvalidWordID), errors.Is(err, entity.ErrInvalidFilter),
		errors.Is(err, entity.ErrWordNotInSession), errors.Is(err, entity.ErrEmptyCatalogEntry):
		return http.StatusBadRequest, CodeInvalidArgument
	case errors.Is(err, entity.ErrInvalidState), errors.Is(err, entity.ErrSessionCompleted),
		errors.Is(err, entity.ErrDuplicate):
		return http.StatusConflict, CodeConflict
	case errors.As(err, &storageErr):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.As(err, &catalogErr):
		return http.StatusInternalServerError, CodeInternal
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
