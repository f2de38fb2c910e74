// Package engine implements trade execution and claim settlement on top of
// the pricing models. All functions are pure with respect to I/O: they
// validate, mutate the passed-in market and position, and return a receipt
// describing the lamport transfers the caller must apply atomically.
package engine

import (
	"fmt"
	"time"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/fixedpoint"
)

const bpsDenominator = 10_000

// TradeReceipt describes the money movement of one filled trade.
//
// For a buy the trader pays TotalAmount = Cost + PlatformFee + CreatorFee;
// Cost and CreatorFee go to the market pool (the creator's share is escrowed
// inside it), PlatformFee to the platform wallet.
//
// For a sell the pool releases Cost (the gross refund); the trader receives
// NetAmount = Cost − PlatformFee − CreatorFee, PlatformFee goes to the
// platform wallet, and CreatorFee stays pooled in escrow.
type TradeReceipt struct {
	Outcome     int
	Shares      int64
	Cost        int64 // curve cost (buy) or gross refund (sell)
	PlatformFee int64
	CreatorFee  int64
	TotalAmount int64 // buy: trader debit. sell: pool debit.
	NetAmount   int64 // buy: pool credit. sell: trader credit.
	Supply      int64 // post-trade supply on the traded outcome
}

// ClaimReceipt describes a one-shot payout from the market pool.
type ClaimReceipt struct {
	Amount  int64
	Outcome int
	Shares  int64
}

// fee returns amount*bps/10000, rounded down. Amounts are bounded well below
// the point where the product could overflow int64.
func fee(amount, bps int64) int64 {
	return amount * bps / bpsDenominator
}

// checkTradeInputs covers the guards shared by buys and sells.
func checkTradeInputs(m *domain.Market, p *domain.Position, outcome int, shares int64, now time.Time) error {
	if !m.IsOpen() || !now.Before(m.ResolutionTime) {
		return domain.ErrMarketClosed
	}
	if shares <= 0 {
		return domain.ErrInvalidShares
	}
	if err := m.CheckOutcome(outcome); err != nil {
		return err
	}
	if shares > m.MaxTradeShares {
		return domain.ErrTradeTooLarge
	}
	if p.InCooldown(now, m.CooldownSeconds) {
		return domain.ErrCooldownActive
	}
	return nil
}

// checkPositionCap bounds a trader's post-buy holding on one outcome to a
// fraction of the total share supply. Skipped while the market is below one
// full trade of supply so early traders are not locked out of an empty book.
func checkPositionCap(m *domain.Market, holdingAfter, totalSupplyAfter int64) error {
	if m.MaxPositionBps == domain.PositionCapDisabled {
		return nil
	}
	if totalSupplyAfter < m.MaxTradeShares {
		return nil
	}
	if holdingAfter*bpsDenominator > int64(m.MaxPositionBps)*totalSupplyAfter {
		return domain.ErrPositionCapExceeded
	}
	return nil
}

// Buy fills a share purchase. maxCost is the trader's slippage bound on the
// total debit, fees included; zero disables the check.
func Buy(m *domain.Market, p *domain.Position, outcome int, shares, maxCost int64, now time.Time) (*TradeReceipt, error) {
	if err := checkTradeInputs(m, p, outcome, shares, now); err != nil {
		return nil, err
	}

	holdingAfter := p.SharesOf(outcome) + shares
	totalSupplyAfter := m.TotalSupply() + shares
	if err := checkPositionCap(m, holdingAfter, totalSupplyAfter); err != nil {
		return nil, err
	}

	model, err := m.PricingModel()
	if err != nil {
		return nil, fmt.Errorf("engine.Buy: %w", err)
	}
	cost64, err := model.BuyCost(m.QuantityVector(), outcome, uint64(shares))
	if err != nil {
		return nil, fmt.Errorf("engine.Buy: %w", err)
	}
	cost := int64(cost64)

	platformFee := fee(cost, domain.PlatformFeeBps)
	creatorFee := fee(cost, domain.CreatorFeeBps)
	total := cost + platformFee + creatorFee

	if maxCost > 0 && total > maxCost {
		return nil, domain.ErrMaxCostExceeded
	}

	m.Quantities[outcome] += shares
	m.CreatorFeeEscrow += creatorFee
	m.UpdatedAt = now
	// The refund basis carries the curve cost only; fees are sunk.
	p.ApplyBuy(outcome, shares, cost, now)

	return &TradeReceipt{
		Outcome:     outcome,
		Shares:      shares,
		Cost:        cost,
		PlatformFee: platformFee,
		CreatorFee:  creatorFee,
		TotalAmount: total,
		NetAmount:   cost + creatorFee,
		Supply:      m.Quantities[outcome],
	}, nil
}

// Sell fills a share sale. minRefund is the trader's slippage bound on the
// net credit after fees; zero disables the check.
func Sell(m *domain.Market, p *domain.Position, outcome int, shares, minRefund int64, now time.Time) (*TradeReceipt, error) {
	if err := checkTradeInputs(m, p, outcome, shares, now); err != nil {
		return nil, err
	}
	if p.SharesOf(outcome) < shares {
		return nil, domain.ErrNotEnoughShares
	}

	model, err := m.PricingModel()
	if err != nil {
		return nil, fmt.Errorf("engine.Sell: %w", err)
	}
	gross64, err := model.SellRefund(m.QuantityVector(), outcome, uint64(shares))
	if err != nil {
		return nil, fmt.Errorf("engine.Sell: %w", err)
	}
	gross := int64(gross64)

	platformFee := fee(gross, domain.PlatformFeeBps)
	creatorFee := fee(gross, domain.CreatorFeeBps)
	net := gross - platformFee - creatorFee

	if minRefund > 0 && net < minRefund {
		return nil, domain.ErrMinRefundNotMet
	}

	m.Quantities[outcome] -= shares
	m.CreatorFeeEscrow += creatorFee
	m.UpdatedAt = now
	p.ApplySell(outcome, shares, gross, now)

	return &TradeReceipt{
		Outcome:     outcome,
		Shares:      shares,
		Cost:        gross,
		PlatformFee: platformFee,
		CreatorFee:  creatorFee,
		TotalAmount: net + platformFee, // leaves the pool; creator fee stays escrowed
		NetAmount:   net,
		Supply:      m.Quantities[outcome],
	}, nil
}

// ClaimWinnings computes a winner's pro-rata payout from the settled pool.
// poolBalance is the market pool's lamport balance net of the creator fee
// escrow. The payout floors, so the sum over all winners never exceeds the
// pool.
func ClaimWinnings(m *domain.Market, p *domain.Position, poolBalance int64, now time.Time) (*ClaimReceipt, error) {
	if m.Status != domain.StatusFinalized || m.WinningOutcome == nil {
		return nil, domain.ErrInvalidState
	}
	if p.Claimed {
		return nil, domain.ErrAlreadyClaimed
	}

	win := int(*m.WinningOutcome)
	shares := p.SharesOf(win)
	if shares <= 0 {
		return nil, domain.ErrNoWinningShares
	}
	winningSupply := m.Quantities[win]
	if winningSupply <= 0 {
		return nil, domain.ErrInvalidState
	}

	// shares ≤ winningSupply, so the 128-bit intermediate always divides
	// back under the pool balance.
	payout64, err := fixedpoint.MulDiv(uint64(shares), uint64(poolBalance), uint64(winningSupply))
	if err != nil {
		return nil, fmt.Errorf("engine.ClaimWinnings: %w", err)
	}
	payout := int64(payout64)
	if payout <= 0 {
		return nil, domain.ErrInvalidPayout
	}
	if payout > poolBalance {
		return nil, domain.ErrInsufficientPool
	}

	p.Claimed = true
	p.UpdatedAt = now
	return &ClaimReceipt{Amount: payout, Outcome: win, Shares: shares}, nil
}

// ClaimRefund pays back a trader's net cost basis after cancellation.
func ClaimRefund(m *domain.Market, p *domain.Position, poolBalance int64, now time.Time) (*ClaimReceipt, error) {
	if m.Status != domain.StatusCancelled {
		return nil, domain.ErrInvalidState
	}
	if p.Claimed {
		return nil, domain.ErrAlreadyClaimed
	}
	if p.NetCost <= 0 {
		return nil, domain.ErrNothingToRefund
	}
	if p.NetCost > poolBalance {
		return nil, domain.ErrInsufficientPool
	}

	amount := p.NetCost
	p.Claimed = true
	p.UpdatedAt = now
	return &ClaimReceipt{Amount: amount}, nil
}

// ClaimCreatorFees releases the escrowed creator fees after finalization.
// Caller authorisation (claimer == creator) is enforced by the service.
func ClaimCreatorFees(m *domain.Market, now time.Time) (*ClaimReceipt, error) {
	if m.Status != domain.StatusFinalized {
		return nil, domain.ErrInvalidState
	}
	if m.CreatorFeeEscrow <= 0 {
		return nil, domain.ErrNothingToClaim
	}

	amount := m.CreatorFeeEscrow
	m.CreatorFeeEscrow = 0
	m.UpdatedAt = now
	return &ClaimReceipt{Amount: amount}, nil
}
