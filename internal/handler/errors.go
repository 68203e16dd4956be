package handler

import (
	"errors"
	"net/http"

	"agrilink/internal/transport/httpdto"
	agrilink_errors "agrilink/pkg/errors"
	"agrilink/pkg/logger"

	"github.com/gin-gonic/gin"
)

// respondError translates the service error taxonomy to HTTP. Expected
// business-rule violations map to distinct codes; anything else is an
// infrastructure fault reported generically and logged.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	type mapping struct {
		status int
		code   string
	}
	known := []struct {
		err error
		m   mapping
	}{
		{agrilink_errors.ErrUnauthorized, mapping{http.StatusUnauthorized, "UNAUTHORIZED"}},
		{agrilink_errors.ErrForbidden, mapping{http.StatusForbidden, "FORBIDDEN"}},
		{agrilink_errors.ErrSelfResponse, mapping{http.StatusForbidden, "SELF_RESPONSE"}},
		{agrilink_errors.ErrNotFound, mapping{http.StatusNotFound, "NOT_FOUND"}},
		{agrilink_errors.ErrTargetNotFound, mapping{http.StatusNotFound, "TARGET_NOT_FOUND"}},
		{agrilink_errors.ErrProfileIncomplete, mapping{http.StatusConflict, "PROFILE_INCOMPLETE"}},
		{agrilink_errors.ErrDuplicatePending, mapping{http.StatusConflict, "DUPLICATE_PENDING"}},
		{agrilink_errors.ErrAlreadyConnected, mapping{http.StatusConflict, "ALREADY_CONNECTED"}},
		{agrilink_errors.ErrPreviouslyRejected, mapping{http.StatusConflict, "PREVIOUSLY_REJECTED"}},
		{agrilink_errors.ErrAlreadyResolved, mapping{http.StatusConflict, "ALREADY_RESOLVED"}},
		{agrilink_errors.ErrConnectionNotAccepted, mapping{http.StatusConflict, "CONNECTION_NOT_ACCEPTED"}},
		{agrilink_errors.ErrAlreadyExists, mapping{http.StatusConflict, "ALREADY_EXISTS"}},
		{agrilink_errors.ErrInvalidInput, mapping{http.StatusBadRequest, "INVALID_REQUEST"}},
	}

	for _, k := range known {
		if errors.Is(err, k.err) {
			c.JSON(k.m.status, httpdto.NewErrorResponse(err.Error(), k.m.code))
			return
		}
	}

	if log != nil {
		log.Errorf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
}
