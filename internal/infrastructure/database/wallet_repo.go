package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/wallet-api/internal/domain/entities"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
)

// Ensure WalletRepo implements WalletRepository
var _ repositories.WalletRepository = (*WalletRepo)(nil)

// walletSchema stores the wallet as one JSONB document. The singleton
// primary key allows at most one row.
const walletSchema = `
	CREATE TABLE IF NOT EXISTS wallet_documents (
		singleton  BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
		id         TEXT NOT NULL UNIQUE,
		document   JSONB NOT NULL,
		version    BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// walletRow is the database representation of the wallet document
type walletRow struct {
	ID        string    `db:"id"`
	Document  []byte    `db:"document"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// WalletRepo implements WalletRepository using a PostgreSQL JSONB column
type WalletRepo struct {
	db *sqlx.DB
}

// NewWalletRepo creates a new wallet repository
func NewWalletRepo(db *sqlx.DB) *WalletRepo {
	return &WalletRepo{db: db}
}

// EnsureSchema creates the wallet table if it does not exist
func (r *WalletRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, walletSchema); err != nil {
		return fmt.Errorf("failed to create wallet schema: %w", err)
	}
	return nil
}

// Get retrieves the wallet document
func (r *WalletRepo) Get(ctx context.Context) (*entities.Wallet, error) {
	var row walletRow
	query := `SELECT id, document, version, created_at, updated_at FROM wallet_documents WHERE singleton`

	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	var wallet entities.Wallet
	if err := json.Unmarshal(row.Document, &wallet); err != nil {
		return nil, fmt.Errorf("failed to decode wallet document: %w", err)
	}
	wallet.ID = row.ID
	wallet.Version = row.Version
	wallet.CreatedAt = row.CreatedAt
	wallet.UpdatedAt = row.UpdatedAt

	return &wallet, nil
}

// Create inserts the wallet unless a wallet row already exists
func (r *WalletRepo) Create(ctx context.Context, wallet *entities.Wallet) (bool, error) {
	doc, err := json.Marshal(wallet)
	if err != nil {
		return false, fmt.Errorf("failed to encode wallet document: %w", err)
	}

	query := `
		INSERT INTO wallet_documents (id, document, version, created_at, updated_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT (singleton) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, wallet.ID, string(doc), wallet.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	wallet.Version = 1
	return true, nil
}

// Replace overwrites the document if nobody wrote it since it was read
func (r *WalletRepo) Replace(ctx context.Context, wallet *entities.Wallet) error {
	doc, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet document: %w", err)
	}

	query := `
		UPDATE wallet_documents SET
			document = $3,
			version = version + 1,
			updated_at = $4
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query, wallet.ID, wallet.Version, string(doc), wallet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to replace wallet: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrVersionConflict
	}

	wallet.Version++
	return nil
}

// HealthCheck performs a health check on the database
func (r *WalletRepo) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
