// Package ledger turns engine receipts into balanced wallet transfer plans
// and applies them against a store. Every plan moves lamports between
// wallets only; nothing is minted or burned past the initial deposit, which
// is what keeps the market pool solvent by construction.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/engine"
)

// Entry is one signed balance change on a wallet. Entries come in balanced
// groups: the amounts of a plan sum to zero.
type Entry struct {
	WalletID    uuid.UUID
	Amount      int64 // positive credit, negative debit
	Type        domain.TxType
	RefID       *uuid.UUID
	Description string
}

// Store is the wallet mutation surface a plan is applied against. The SQL
// implementation runs inside the caller's transaction; the in-memory one
// backs tests.
type Store interface {
	// AdjustBalance applies a signed delta, failing with
	// domain.ErrInsufficientBalance when it would go negative, and records
	// the audit transaction row.
	AdjustBalance(ctx context.Context, e Entry) error
}

// Apply runs every entry of a plan in order. The caller provides atomicity;
// Apply itself stops at the first failure.
func Apply(ctx context.Context, s Store, plan []Entry) error {
	for _, e := range plan {
		if err := s.AdjustBalance(ctx, e); err != nil {
			return fmt.Errorf("ledger.Apply %s: %w", e.Type, err)
		}
	}
	return nil
}

// Balanced reports whether a plan's amounts sum to zero.
func Balanced(plan []Entry) bool {
	var sum int64
	for _, e := range plan {
		sum += e.Amount
	}
	return sum == 0
}

// Wallets names the parties of a settlement plan.
type Wallets struct {
	Trader   uuid.UUID
	Pool     uuid.UUID
	Platform uuid.UUID
}

// PlanBuy moves the trader's total debit into the pool and the platform
// wallet. The creator fee rides inside the pool as escrow; it is not a
// separate wallet until claimed.
func PlanBuy(r *engine.TradeReceipt, w Wallets, marketID uuid.UUID) []Entry {
	ref := marketID
	return []Entry{
		{WalletID: w.Trader, Amount: -r.TotalAmount, Type: domain.TxBuy, RefID: &ref,
			Description: fmt.Sprintf("buy %d shares of outcome %d", r.Shares, r.Outcome)},
		{WalletID: w.Pool, Amount: r.NetAmount, Type: domain.TxBuy, RefID: &ref,
			Description: "pool credit"},
		{WalletID: w.Platform, Amount: r.PlatformFee, Type: domain.TxPlatformFee, RefID: &ref,
			Description: "platform fee"},
	}
}

// PlanSell releases the gross refund from the pool minus the creator fee,
// which stays pooled in escrow.
func PlanSell(r *engine.TradeReceipt, w Wallets, marketID uuid.UUID) []Entry {
	ref := marketID
	return []Entry{
		{WalletID: w.Pool, Amount: -r.TotalAmount, Type: domain.TxSellRefund, RefID: &ref,
			Description: fmt.Sprintf("sell %d shares of outcome %d", r.Shares, r.Outcome)},
		{WalletID: w.Trader, Amount: r.NetAmount, Type: domain.TxSellRefund, RefID: &ref,
			Description: "sell proceeds"},
		{WalletID: w.Platform, Amount: r.PlatformFee, Type: domain.TxPlatformFee, RefID: &ref,
			Description: "platform fee"},
	}
}

// PlanClaim pays a winnings or refund claim from the pool.
func PlanClaim(r *engine.ClaimReceipt, typ domain.TxType, w Wallets, marketID uuid.UUID) []Entry {
	ref := marketID
	desc := "winnings payout"
	if typ == domain.TxRefund {
		desc = "cancellation refund"
	}
	return []Entry{
		{WalletID: w.Pool, Amount: -r.Amount, Type: typ, RefID: &ref, Description: desc},
		{WalletID: w.Trader, Amount: r.Amount, Type: typ, RefID: &ref, Description: desc},
	}
}

// PlanCreatorFees releases the escrowed creator share from the pool to the
// creator's wallet.
func PlanCreatorFees(r *engine.ClaimReceipt, creatorWallet, poolWallet, marketID uuid.UUID) []Entry {
	ref := marketID
	return []Entry{
		{WalletID: poolWallet, Amount: -r.Amount, Type: domain.TxCreatorFee, RefID: &ref,
			Description: "creator fee escrow release"},
		{WalletID: creatorWallet, Amount: r.Amount, Type: domain.TxCreatorFee, RefID: &ref,
			Description: "creator fees"},
	}
}
