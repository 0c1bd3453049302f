package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists wallets and purchase records in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store implementation.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts a wallet record.
func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	clientID, err := uuid.Parse(w.ClientID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, client_id, balance, version, created_at)
        VALUES ($1, $2, $3, $4, $5)`, walletID, clientID, w.Balance, w.Version, w.CreatedAt.UTC())
	return err
}

// Wallet fetches a wallet by identifier.
func (s *PostgresStore) Wallet(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, client_id, balance, version, created_at
        FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// SaveWallet persists the updated balance as a single write. The version
// predicate enforces the compare-and-set: zero rows affected on a live wallet
// means another writer committed first.
func (s *PostgresStore) SaveWallet(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return ErrWalletNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE wallets SET balance = $1, version = version + 1
        WHERE id = $2 AND version = $3`, w.Balance, walletID, w.Version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return s.classifySaveMiss(ctx, walletID)
	}
	return nil
}

// SaveWalletAndPurchase commits the balance write and the purchase record as
// one transaction; if either statement fails neither is applied.
func (s *PostgresStore) SaveWalletAndPurchase(ctx context.Context, w Wallet, p Purchase) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return ErrWalletNotFound
	}
	purchaseID, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, version = version + 1
        WHERE id = $2 AND version = $3`, w.Balance, walletID, w.Version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return s.classifySaveMiss(ctx, walletID)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO purchases (id, wallet_id, amount, channel, store_url, store_address, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		purchaseID, walletID, p.Amount, p.Channel, p.StoreURL, p.StoreAddress, p.CreatedAt.UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// PurchasesByWallet returns the purchase records debited from the wallet,
// oldest first.
func (s *PostgresStore) PurchasesByWallet(ctx context.Context, walletID string) ([]Purchase, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	if _, err := s.Wallet(ctx, walletID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT id, wallet_id, amount, channel, store_url, store_address, created_at
        FROM purchases WHERE wallet_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Purchase
	for rows.Next() {
		var (
			p         Purchase
			pid, wid  uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&pid, &wid, &p.Amount, &p.Channel, &p.StoreURL, &p.StoreAddress, &createdAt); err != nil {
			return nil, err
		}
		p.ID = pid.String()
		p.WalletID = wid.String()
		p.CreatedAt = createdAt.UTC()
		records = append(records, p)
	}
	return records, rows.Err()
}

// classifySaveMiss distinguishes a deleted wallet from a stale version stamp.
func (s *PostgresStore) classifySaveMiss(ctx context.Context, walletID uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE id = $1)`, walletID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrWalletNotFound
	}
	return ErrConflict
}

type walletRow interface {
	Scan(dest ...any) error
}

func scanWallet(row walletRow) (Wallet, error) {
	var (
		w         Wallet
		id        uuid.UUID
		clientID  uuid.UUID
		balance   decimal.Decimal
		createdAt time.Time
	)
	if err := row.Scan(&id, &clientID, &balance, &w.Version, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.ClientID = clientID.String()
	w.Balance = balance
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
