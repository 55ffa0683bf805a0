package sla

import "errors"

var (
	// ErrInvalidTransition is returned when a violation cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid violation status transition")
	ErrUnknownRuleType   = errors.New("unknown sla rule type")
)
