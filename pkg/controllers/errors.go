package controllers

import (
	"errors"
	"net/http"

	"tapandstamp/pkg/consts"
	"tapandstamp/pkg/usecases"
)

// internalErrorMessage replaces the error text of every 500 response.
const internalErrorMessage = "failed to process request"

// errorMessage is the client-facing text for err.
func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return internalErrorMessage
	}
	return err.Error()
}

// errorStatus maps use case errors onto HTTP status codes and machine-readable codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecases.ErrRewardPending):
		return http.StatusBadRequest, consts.ErrCodeRewardPending
	case errors.Is(err, usecases.ErrCooldown):
		return http.StatusTooManyRequests, consts.ErrCodeCooldown
	case errors.Is(err, usecases.ErrNoReward):
		return http.StatusBadRequest, consts.ErrCodeNoReward
	case errors.Is(err, usecases.ErrMemberNotFound), errors.Is(err, usecases.ErrMerchantNotFound),
		errors.Is(err, usecases.ErrUnknownPassType), errors.Is(err, usecases.ErrInvalidSerial):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, usecases.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, usecases.ErrConcurrentUpdate):
		return http.StatusConflict, "conflict"
	case errors.Is(err, usecases.ErrInvalidPlatform), errors.Is(err, usecases.ErrInvalidName):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
