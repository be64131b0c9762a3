package handler

import (
	"errors"
	"net/http"

	"phonemarket-bot/internal/market"
	"phonemarket-bot/pkg/apierror"
	"phonemarket-bot/pkg/response"
)

// toAPIError converts err into an API error. Market errors keep their
// message; anything else becomes a generic 500.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var me market.Error
	if !errors.As(err, &me) {
		return apierror.InternalError("")
	}

	switch market.Kind(err) {
	case market.KindNotFound:
		return apierror.NotFound(err.Error())
	case market.KindStale:
		return apierror.Conflict(err.Error())
	case market.KindValidation:
		switch me {
		case market.ErrInvalidSlot, market.ErrInvalidAmount:
			return apierror.BadRequest(err.Error())
		}
		return apierror.Conflict(err.Error())
	}
	return apierror.ServiceUnavailable(err.Error())
}

func writeError(w http.ResponseWriter, err error) {
	response.Error(w, toAPIError(err))
}
