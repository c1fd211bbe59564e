package domain

import "errors"

var (
	ErrStateNotFound     = errors.New("stream state not found")
	ErrCorruptState      = errors.New("stream state violates invariants")
	ErrStreamerActive    = errors.New("there is already an active streamer")
	ErrNotStreamer       = errors.New("not the active streamer")
	ErrNoActiveStreamer  = errors.New("no active streamer")
	ErrOwnSeatRequest    = errors.New("requester already holds the seat")
	ErrRequestPending    = errors.New("another request is already pending")
	ErrRequestCooldown   = errors.New("request cooldown has not elapsed")
	ErrNoPendingRequest  = errors.New("no pending request")
	ErrRequesterMismatch = errors.New("response target does not match pending request")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already taken")
	ErrUserDisabled       = errors.New("user account disabled")
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrTelemetryNotFound = errors.New("no telemetry recorded")
)
