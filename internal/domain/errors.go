// Package domain holds error sentinels shared across engines.
// Domain errors are pure — no infrastructure dependency.
package domain

import "errors"

var (
	// Transport parse errors — a request line is not a valid command.
	ErrMalformedRequest = errors.New("request line is not a valid command")
	ErrUnknownCommand   = errors.New("unknown command")

	// Precondition errors — an engine has no model yet.
	ErrGraphNotReady    = errors.New("graph engine has no topology installed")
	ErrTrackerNotReady  = errors.New("tracker has no topology installed")
	ErrSecurityNotReady = errors.New("security brain has not been trained")
	ErrEnergyNotReady   = errors.New("energy brain has not been trained")
	ErrHealthNotReady   = errors.New("health brain has not been trained")
	ErrPINNNotReady     = errors.New("PINN regressor has not been trained")

	// Input shape errors — missing or malformed required fields.
	ErrEmptyRoomList      = errors.New("rooms list is empty")
	ErrMatrixShapeMismatch = errors.New("matrix does not match room count")
	ErrUnknownRoom        = errors.New("room is not present in the topology")
	ErrNoTrainingData     = errors.New("no training samples supplied")
	ErrInsufficientData   = errors.New("insufficient samples to fit a model")

	// Numeric errors — NaN gradient, singular scaler, zero denominator.
	ErrSingularScaler  = errors.New("scaler has zero range")
	ErrDegenerateWeights = errors.New("particle weights collapsed to zero")

	// Persistence errors — I/O or permission failure.
	ErrDataDirUnwritable = errors.New("data directory is not writable")
	ErrPersistFailed     = errors.New("failed to persist engine state")
	ErrRestoreFailed     = errors.New("failed to restore engine state")
)
