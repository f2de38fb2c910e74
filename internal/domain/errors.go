package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Market creation errors
var (
	// ErrInvalidOutcomes is returned when the outcome list is malformed:
	// wrong count for the market type, empty or over-long names.
	ErrInvalidOutcomes = errors.New("invalid outcome configuration")

	// ErrInvalidResolutionTime is returned when the resolution time is not in
	// the future.
	ErrInvalidResolutionTime = errors.New("resolution time must be in the future")

	// ErrInvalidLiquidity is returned when the liquidity parameter is zero or
	// negative.
	ErrInvalidLiquidity = errors.New("liquidity parameter must be positive")

	// ErrInvalidCurve is returned when the pricing curve name is unknown.
	ErrInvalidCurve = errors.New("unknown pricing curve")

	// ErrInvalidAntiManip is returned when an anti-manipulation parameter is
	// outside its allowed range.
	ErrInvalidAntiManip = errors.New("anti-manipulation parameter out of range")
)

// Market lifecycle errors
var (
	// ErrMarketNotFound is returned when no market matches the given criteria.
	ErrMarketNotFound = errors.New("market not found")

	// ErrMarketResolved is returned when an operation targets a market that
	// has already been finalized.
	ErrMarketResolved = errors.New("market is already resolved")

	// ErrMarketNotEnded is returned when a resolution action arrives before
	// the market's resolution time.
	ErrMarketNotEnded = errors.New("market has not reached its resolution time")

	// ErrMarketClosed is returned when a trade arrives at or after the
	// resolution time, or on a non-open market.
	ErrMarketClosed = errors.New("market is closed for trading")

	// ErrInvalidState is returned when the market is not in the state the
	// requested transition expects.
	ErrInvalidState = errors.New("invalid market state for this operation")

	// ErrTooEarly is returned when a deadline-gated action arrives before its
	// deadline has passed.
	ErrTooEarly = errors.New("deadline has not passed yet")

	// ErrTooLateToPropose is returned when the creator's propose window has
	// lapsed.
	ErrTooLateToPropose = errors.New("propose window has expired")

	// ErrDisputeWindowClosed is returned when a dispute arrives at or after
	// the contest deadline.
	ErrDisputeWindowClosed = errors.New("dispute window has closed")

	// ErrHasDisputes is returned when the permissionless finalize path is
	// attempted on a disputed proposal.
	ErrHasDisputes = errors.New("proposal has disputes; admin resolution required")

	// ErrNoDispute is returned when an admin override is attempted on an
	// undisputed proposal.
	ErrNoDispute = errors.New("no disputes; use the permissionless finalize path")
)

// Trade errors
var (
	// ErrInvalidShares is returned when a trade requests zero shares.
	ErrInvalidShares = errors.New("share amount must be positive")

	// ErrInvalidOutcomeIndex is returned when the outcome index is out of
	// range for the market.
	ErrInvalidOutcomeIndex = errors.New("outcome index out of range")

	// ErrTradeTooLarge is returned when a single trade exceeds the market's
	// per-trade share limit.
	ErrTradeTooLarge = errors.New("trade exceeds per-trade share limit")

	// ErrCooldownActive is returned when a trader acts again before their
	// per-market cooldown has elapsed.
	ErrCooldownActive = errors.New("cooldown between trades still active")

	// ErrPositionCapExceeded is returned when a buy would push the trader's
	// holding above the market's position cap.
	ErrPositionCapExceeded = errors.New("position would exceed the market cap")

	// ErrNotEnoughShares is returned when a sell exceeds the trader's holding
	// on that outcome.
	ErrNotEnoughShares = errors.New("insufficient shares to sell")

	// ErrMaxCostExceeded is returned when the computed buy cost is above the
	// trader's stated limit.
	ErrMaxCostExceeded = errors.New("cost exceeds the stated maximum")

	// ErrMinRefundNotMet is returned when the computed sell refund is below
	// the trader's stated minimum.
	ErrMinRefundNotMet = errors.New("refund below the stated minimum")
)

// Claim errors
var (
	// ErrPositionNotFound is returned when no position exists for the
	// user/market pair.
	ErrPositionNotFound = errors.New("position not found")

	// ErrNoWinningShares is returned when a winnings claim holds zero shares
	// of the winning outcome.
	ErrNoWinningShares = errors.New("no shares of the winning outcome")

	// ErrAlreadyClaimed is returned on a second claim against the same
	// position.
	ErrAlreadyClaimed = errors.New("position already claimed")

	// ErrNothingToRefund is returned when a cancelled-market refund would pay
	// zero.
	ErrNothingToRefund = errors.New("nothing to refund")

	// ErrNothingToClaim is returned when a creator fee claim finds an empty
	// escrow.
	ErrNothingToClaim = errors.New("nothing to claim")

	// ErrInvalidPayout is returned when a winnings payout floors to zero.
	// The claim is rejected so the one-shot claimed flag is not consumed on
	// a worthless payout.
	ErrInvalidPayout = errors.New("payout amount must be positive")

	// ErrInsufficientPool is returned when a payout would exceed the market
	// pool balance. It indicates an accounting fault and must abort.
	ErrInsufficientPool = errors.New("payout exceeds market pool balance")
)

// User / wallet errors
var (
	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrUsernameTaken is returned on registration when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a suspended/banned user attempts an action.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInsufficientBalance is returned when a user's available balance is
	// too low to cover a buy.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrWalletNotFound is returned when no wallet exists for the requested user.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT or refresh token has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrMarketNotFound,
	ErrPositionNotFound,
	ErrUserNotFound,
	ErrWalletNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values directly
// when you need to translate domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict (e.g.
// duplicate registration, double-claim, or an illegal transition).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrEmailTaken,
		ErrUsernameTaken,
		ErrMarketResolved,
		ErrMarketClosed,
		ErrMarketNotEnded,
		ErrInvalidState,
		ErrTooEarly,
		ErrTooLateToPropose,
		ErrDisputeWindowClosed,
		ErrCooldownActive,
		ErrAlreadyClaimed,
		ErrHasDisputes,
		ErrNoDispute,
		ErrNoWinningShares,
		ErrNothingToRefund,
		ErrNothingToClaim,
		ErrInvalidPayout,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for errors caused by malformed or out-of-range
// request input, mapped to HTTP 400.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrInvalidOutcomes,
		ErrInvalidResolutionTime,
		ErrInvalidLiquidity,
		ErrInvalidCurve,
		ErrInvalidAntiManip,
		ErrInvalidShares,
		ErrInvalidOutcomeIndex,
		ErrTradeTooLarge,
		ErrPositionCapExceeded,
		ErrNotEnoughShares,
		ErrMaxCostExceeded,
		ErrMinRefundNotMet,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
