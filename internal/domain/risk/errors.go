package risk

import "errors"

var (
	ErrAlertNotFound        = errors.New("fraud alert not found")
	ErrAlertAlreadyReviewed = errors.New("fraud alert already reviewed")

	ErrNoActiveChallenge    = errors.New("no active challenge for transaction")
	ErrChallengeExpired     = errors.New("challenge expired")
	ErrAttemptsExhausted    = errors.New("challenge attempts exhausted")
	ErrInvalidCode          = errors.New("invalid verification code")
	ErrChallengeNotRequired = errors.New("transaction does not require verification")

	// ErrDispatchFailed wraps notification transport failures. The
	// challenge stays valid when dispatch fails; callers may resend.
	ErrDispatchFailed = errors.New("notification dispatch failed")

	ErrModelNotLoaded = errors.New("anomaly model not loaded")
)
