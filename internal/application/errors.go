package application

import (
	"errors"
	"strconv"

	"github.com/pan-pacific/tracking-service/internal/domain"
	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
)

// toAppError maps domain errors to API errors. Unknown errors become
// internal errors wrapping the cause.
func toAppError(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}

	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		transitionErr *domain.TransitionError
		parseErr      *domain.ImportParseError
		duplicateErr  *domain.DuplicateTrackingIDError
	)

	switch {
	case errors.As(err, &validationErr):
		return apperrors.ErrValidationWithFields(validationErr.Error(), map[string]string{
			"field": validationErr.Field,
		}).Wrap(err)
	case errors.As(err, &notFoundErr):
		return apperrors.ErrNotFoundWithID("shipment", notFoundErr.ID).Wrap(err)
	case errors.As(err, &transitionErr):
		if transitionErr.Kind == domain.TerminalStateViolation {
			return apperrors.ErrTerminalState(string(transitionErr.Current), string(transitionErr.Attempted)).Wrap(err)
		}
		return apperrors.ErrInvalidTransition(string(transitionErr.Current), string(transitionErr.Attempted)).Wrap(err)
	case errors.As(err, &parseErr):
		appErr := apperrors.ErrImportParse(parseErr.Error()).Wrap(err)
		if parseErr.Line > 0 {
			appErr.WithDetail("line", strconv.Itoa(parseErr.Line))
		}
		return appErr
	case errors.As(err, &duplicateErr):
		return apperrors.ErrConflict(duplicateErr.Error()).WithDetail("trackingId", duplicateErr.TrackingID).Wrap(err)
	case errors.Is(err, domain.ErrInvalidPage), errors.Is(err, domain.ErrInvalidPageSize):
		return apperrors.ErrBadRequest(err.Error()).Wrap(err)
	default:
		return apperrors.ErrInternal("").Wrap(err)
	}
}

// rejectionReason is the metrics label for a refused mutation
func rejectionReason(err error) string {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		transitionErr *domain.TransitionError
		parseErr      *domain.ImportParseError
		duplicateErr  *domain.DuplicateTrackingIDError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.As(err, &transitionErr):
		return string(transitionErr.Kind)
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &duplicateErr):
		return "duplicate"
	default:
		return "internal"
	}
}
