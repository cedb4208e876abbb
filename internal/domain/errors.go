package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("status conflict")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrQueueFull     = errors.New("queue full")
	ErrJobClaimed    = errors.New("job already claimed")
	ErrSlippage      = errors.New("slippage tolerance exceeded")
	ErrThresholdMiss = errors.New("limit price not met")
)
