package staking

import "errors"

var (
	errNilState  = errors.New("staking: state not configured")
	errNilOracle = errors.New("staking: conversion oracle not configured")
	errNilMirror = errors.New("staking: legacy mirror not configured")

	// ErrOperatorNotFound is returned when the operator identity has never
	// been claimed.
	ErrOperatorNotFound = errors.New("staking: operator not found")
	// ErrAlreadyClaimed is returned when a creation path targets an operator
	// identity already taken by any origination path.
	ErrAlreadyClaimed = errors.New("staking: operator already claimed")
	// ErrUnauthorizedCaller is returned when the caller lacks the role an
	// operation demands.
	ErrUnauthorizedCaller = errors.New("staking: caller not authorized")
	// ErrInvalidAmount is returned for zero or otherwise malformed amounts.
	ErrInvalidAmount = errors.New("staking: amount must be positive")
	// ErrBelowMinimumStake is returned when a native stake would start or
	// drop below the configured minimum.
	ErrBelowMinimumStake = errors.New("staking: amount below minimum stake")
	// ErrApplicationNotApproved is returned when the application has not been
	// approved by governance.
	ErrApplicationNotApproved = errors.New("staking: application not approved")
	// ErrApplicationDisabled is returned when the application's panic button
	// has been pressed.
	ErrApplicationDisabled = errors.New("staking: application disabled")
	// ErrTooManyApplications is returned when a first authorization would
	// exceed the authorization ceiling.
	ErrTooManyApplications = errors.New("staking: authorization ceiling reached")
	// ErrInsufficientStake is returned when the available stake cannot cover
	// the requested authorization or removal.
	ErrInsufficientStake = errors.New("staking: not enough stake available")
	// ErrOutstandingAuthorizations is returned when an operation demands a
	// clean authorization table.
	ErrOutstandingAuthorizations = errors.New("staking: authorizations still outstanding")
	// ErrNothingToDecrease is returned by approve when no decrease request is
	// pending for the calling application.
	ErrNothingToDecrease = errors.New("staking: no deauthorizing in progress")
	// ErrNothingToProcess is returned when the slashing queue is fully
	// drained.
	ErrNothingToProcess = errors.New("staking: nothing to process")
	// ErrNoDiscrepancy is returned when the cached legacy snapshot does not
	// exceed the authoritative mirror amount.
	ErrNoDiscrepancy = errors.New("staking: no discrepancy detected")
	// ErrDelegationNotActive is returned when a legacy mirror reports no live
	// delegation to sync from.
	ErrDelegationNotActive = errors.New("staking: legacy delegation not active")
	// ErrNothingToSync is returned when a legacy top-up does not increase the
	// cached snapshot.
	ErrNothingToSync = errors.New("staking: nothing to sync")
	// ErrConversionZero is returned when a denomination conversion rounds a
	// positive amount to zero.
	ErrConversionZero = errors.New("staking: conversion yields zero")
	// ErrInvalidMultiplier is returned for reward multipliers outside (0,100].
	ErrInvalidMultiplier = errors.New("staking: reward multiplier out of range")
	// ErrStakeHeldTooBriefly is returned when a below-minimum unstake is
	// attempted before the minimum holding duration has elapsed.
	ErrStakeHeldTooBriefly = errors.New("staking: stake held less than minimum time")
)
