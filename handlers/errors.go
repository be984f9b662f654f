package handlers

import (
	"errors"

	"iot-monitor/usecases"
)

const internalError = "Internal server error"

// publicError is the message a client may see for err.
func publicError(err error) string {
	var (
		verr *usecases.ValidationError
		nf   *usecases.NotFoundError
		lerr *usecases.LimitExceededError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &nf), errors.As(err, &lerr):
		return err.Error()
	}
	return internalError
}
