// internal/pkg/response/errors.go
package response

import (
	"errors"
	"net/http"

	xerrors "fleetrent-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// StatusFor maps service errors to HTTP status codes. An inactive vehicle
// also matches ErrVehicleNotFound, so it is tested first.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, xerrors.ErrVehicleInactive),
		errors.Is(err, xerrors.ErrInvalidRange),
		errors.Is(err, xerrors.ErrRangeTooShort),
		errors.Is(err, xerrors.ErrRangeTooLong):
		return http.StatusUnprocessableEntity
	case errors.Is(err, xerrors.ErrInvalidInput),
		errors.Is(err, xerrors.ErrBadRequest),
		errors.Is(err, xerrors.ErrReasonRequired):
		return http.StatusBadRequest
	case errors.Is(err, xerrors.ErrNotFound), errors.Is(err, xerrors.ErrVehicleNotFound):
		return http.StatusNotFound
	case errors.Is(err, xerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, xerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, xerrors.ErrConflict), errors.Is(err, xerrors.ErrIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, xerrors.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err with the status StatusFor picks. Internal errors are
// not echoed to the client. Conflicts carry the blocking interval as data.
func FromError(c *gin.Context, message string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		Error(c, status, message, xerrors.ErrInternal)
		return
	}
	if conflict, ok := xerrors.AsConflict(err); ok {
		Error(c, status, message, err, conflict)
		return
	}
	Error(c, status, message, err)
}
