package domain

import "errors"

var (
	ErrRunNotFound    = errors.New("provisioning run not found")
	ErrWaitInProgress = errors.New("a wait is already in progress for this deployment")
)
