package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/settlement/internal/domain"
	"github.com/evetabi/settlement/internal/ledger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WalletRepository handles all database operations for Wallets and Transactions.
// Balances are integral lamports.
type WalletRepository struct {
	db *sqlx.DB
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create inserts a wallet row within a transaction.
func (r *WalletRepository) Create(ctx context.Context, tx *sqlx.Tx, w *domain.Wallet) error {
	query := `
		INSERT INTO wallets
			(id, user_id, wallet_type, market_id, balance, created_at, updated_at)
		VALUES
			(:id, :user_id, :wallet_type, :market_id, :balance, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, w); err != nil {
		return fmt.Errorf("wallet_repo.Create: %w", err)
	}
	return nil
}

// GetByUserID fetches the wallet belonging to a specific user.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetByUserID: %w", err)
	}
	return &w, nil
}

// GetPlatformWallet fetches the platform fee wallet (wallet_type='platform').
func (r *WalletRepository) GetPlatformWallet(ctx context.Context) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE wallet_type = 'platform'`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetPlatformWallet: %w", err)
	}
	return &w, nil
}

// GetMarketPool fetches a market's pool wallet.
func (r *WalletRepository) GetMarketPool(ctx context.Context, marketID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.GetContext(ctx, &w,
		`SELECT * FROM wallets WHERE wallet_type = 'market_pool' AND market_id = $1`, marketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("wallet_repo.GetMarketPool: %w", err)
	}
	return &w, nil
}

// GetBalanceForUpdate locks a wallet row inside a transaction and returns its
// balance.
func (r *WalletRepository) GetBalanceForUpdate(ctx context.Context, tx *sqlx.Tx, walletID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.GetContext(ctx, &balance,
		`SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrWalletNotFound
		}
		return 0, fmt.Errorf("wallet_repo.GetBalanceForUpdate: %w", err)
	}
	return balance, nil
}

// Adjust applies a signed lamport delta to a wallet inside a transaction and
// writes the audit row. The row lock plus the non-negative check make
// concurrent over-draws impossible.
func (r *WalletRepository) Adjust(ctx context.Context, tx *sqlx.Tx, e ledger.Entry) error {
	before, err := r.GetBalanceForUpdate(ctx, tx, e.WalletID)
	if err != nil {
		return err
	}
	after := before + e.Amount
	if after < 0 {
		return domain.ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = now() WHERE id = $2`,
		after, e.WalletID); err != nil {
		return fmt.Errorf("wallet_repo.Adjust update: %w", err)
	}

	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      e.WalletID,
		Type:          e.Type,
		Amount:        e.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		RefID:         e.RefID,
		Description:   e.Description,
		CreatedAt:     time.Now().UTC(),
	}
	return r.LogTransaction(ctx, tx, txn)
}

// LogTransaction inserts an audit record into wallet_transactions inside a transaction.
func (r *WalletRepository) LogTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.Transaction) error {
	query := `
		INSERT INTO wallet_transactions
			(id, wallet_id, type, amount, balance_before, balance_after, ref_id, description, created_at)
		VALUES
			(:id, :wallet_id, :type, :amount, :balance_before, :balance_after, :ref_id, :description, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, txn); err != nil {
		return fmt.Errorf("wallet_repo.LogTransaction: %w", err)
	}
	return nil
}

// GetTransactions returns paginated transaction history for a user's wallet.
func (r *WalletRepository) GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT wt.*
		FROM wallet_transactions wt
		JOIN wallets w ON w.id = wt.wallet_id
		WHERE w.user_id = $1
		ORDER BY wt.created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.GetTransactions: %w", err)
	}
	return txns, nil
}

// GetPlatformTransactions returns recent transactions on the platform fee
// wallet, ordered by descending time.
func (r *WalletRepository) GetPlatformTransactions(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT wt.*
		FROM wallet_transactions wt
		JOIN wallets w ON w.id = wt.wallet_id
		WHERE w.wallet_type = 'platform'
		ORDER BY wt.created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet_repo.GetPlatformTransactions: %w", err)
	}
	return txns, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ledger.Store adapter
// ──────────────────────────────────────────────────────────────────────────────

// TxStore binds the wallet repository to one open transaction so it
// satisfies ledger.Store for the duration of that transaction.
type TxStore struct {
	repo *WalletRepository
	tx   *sqlx.Tx
}

// Bind returns a ledger.Store view of this repository scoped to tx.
func (r *WalletRepository) Bind(tx *sqlx.Tx) *TxStore {
	return &TxStore{repo: r, tx: tx}
}

// AdjustBalance implements ledger.Store.
func (s *TxStore) AdjustBalance(ctx context.Context, e ledger.Entry) error {
	return s.repo.Adjust(ctx, s.tx, e)
}
