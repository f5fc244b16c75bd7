package usecases

import (
	"errors"

	"tapandstamp/pkg/entities"
)

var (
	ErrMemberNotFound   = errors.New("member not found")
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrForbidden        = errors.New("member belongs to another merchant")
	ErrRewardPending    = errors.New("reward must be claimed before stamping again")
	ErrCooldown         = errors.New("member was stamped too recently")
	ErrNoReward         = errors.New("no reward available to claim")
	ErrConcurrentUpdate = errors.New("card changed while it was being updated, retry")
	ErrUnknownPassType  = errors.New("unknown pass type")
	ErrInvalidSerial    = errors.New("invalid serial number")
	ErrNotModified      = errors.New("pass not modified")
	ErrInvalidPlatform  = errors.New("unsupported device platform")
	ErrInvalidName      = errors.New("invalid member name")
)

// StampError carries the card state alongside a refused stamp or claim so callers can still show it.
type StampError struct {
	Err   error
	State entities.StampState
}

func (e *StampError) Error() string {
	return e.Err.Error()
}

func (e *StampError) Unwrap() error {
	return e.Err
}
