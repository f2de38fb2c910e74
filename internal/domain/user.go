package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// UserRole
// ──────────────────────────────────────────────────────────────────────────────

// UserRole controls access levels in the back-office.
type UserRole string

const (
	RoleUser     UserRole = "user"     // standard trader
	RoleAdmin    UserRole = "admin"    // full back-office access; dispute adjudication
	RoleFinance  UserRole = "finance"  // financial reports, platform fee sweeps
	RoleReadOnly UserRole = "readonly" // read-only back-office access
)

// CanAccessBackoffice returns true for all non-standard roles.
func (r UserRole) CanAccessBackoffice() bool {
	return r != RoleUser
}

// IsAdmin returns true only for the full admin role.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

// ──────────────────────────────────────────────────────────────────────────────
// User
// ──────────────────────────────────────────────────────────────────────────────

// User is the domain entity for registered accounts.
type User struct {
	ID           uuid.UUID `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"` // never serialised
	Role         UserRole  `json:"role"       db:"role"`
	IsActive     bool      `json:"is_active"  db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PublicProfile returns a user view safe to expose via API (no password hash).
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublicProfile converts a User to its public-safe representation.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Wallet
// ──────────────────────────────────────────────────────────────────────────────

// WalletType marks system-owned wallets. NULL means a regular user wallet.
const (
	WalletTypeMarketPool = "market_pool" // one per market; backs all payouts
	WalletTypePlatform   = "platform"    // accumulates platform fees
)

// Wallet holds a lamport balance. All settlement amounts are integral
// lamports, so balances never carry fractions.
type Wallet struct {
	ID         uuid.UUID  `json:"id"          db:"id"`
	UserID     *uuid.UUID `json:"user_id"     db:"user_id"`     // NULL for system wallets
	WalletType *string    `json:"wallet_type" db:"wallet_type"` // NULL=user
	MarketID   *uuid.UUID `json:"market_id"   db:"market_id"`   // set for market pools
	Balance    int64      `json:"balance"     db:"balance"`
	CreatedAt  time.Time  `json:"created_at"  db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"  db:"updated_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Transaction
// ──────────────────────────────────────────────────────────────────────────────

// TxType enumerates wallet transaction types for auditing.
type TxType string

const (
	TxDeposit     TxType = "deposit"
	TxWithdraw    TxType = "withdraw"
	TxBuy         TxType = "buy"         // debit: gross buy cost
	TxSellRefund  TxType = "sell_refund" // credit: net sell proceeds
	TxPlatformFee TxType = "platform_fee"
	TxWinnings    TxType = "winnings"
	TxRefund      TxType = "refund" // cancelled-market refund
	TxCreatorFee  TxType = "creator_fee"
)

// Transaction is an immutable audit record for every wallet balance change.
type Transaction struct {
	ID            uuid.UUID  `json:"id"             db:"id"`
	WalletID      uuid.UUID  `json:"wallet_id"      db:"wallet_id"`
	Type          TxType     `json:"type"           db:"type"`
	Amount        int64      `json:"amount"         db:"amount"` // signed lamports
	BalanceBefore int64      `json:"balance_before" db:"balance_before"`
	BalanceAfter  int64      `json:"balance_after"  db:"balance_after"`
	RefID         *uuid.UUID `json:"ref_id"         db:"ref_id"` // market or event ID
	Description   string     `json:"description"    db:"description"`
	CreatedAt     time.Time  `json:"created_at"     db:"created_at"`
}
