package repositories

import (
	"context"
	"errors"

	"github.com/bimakw/wallet-api/internal/domain/entities"
)

// ErrVersionConflict is returned by Replace when the stored document was
// written by someone else since it was read
var ErrVersionConflict = errors.New("wallet version conflict")

// WalletRepository defines the interface for the single wallet document
type WalletRepository interface {
	// Get retrieves the wallet document, or nil if none exists yet
	Get(ctx context.Context) (*entities.Wallet, error)

	// Create stores the wallet only if no wallet exists and reports whether it was written
	Create(ctx context.Context, wallet *entities.Wallet) (bool, error)

	// Replace overwrites the whole document if its stored version still
	// equals wallet.Version. On success wallet.Version is incremented.
	Replace(ctx context.Context, wallet *entities.Wallet) error

	// HealthCheck reports whether the backing store is reachable
	HealthCheck(ctx context.Context) error
}
