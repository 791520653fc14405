package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bimakw/wallet-api/internal/domain/entities"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
)

// Ensure WalletRepo implements WalletRepository
var _ repositories.WalletRepository = (*WalletRepo)(nil)

// storedWallet is the JSON value kept under the wallet key
type storedWallet struct {
	Wallet    entities.Wallet `json:"wallet"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WalletRepo stores the wallet document as JSON under a single Redis key
type WalletRepo struct {
	client *redis.Client
	key    string
}

// NewWalletRepo creates a wallet repository using key
func NewWalletRepo(client *redis.Client, key string) *WalletRepo {
	return &WalletRepo{client: client, key: key}
}

// Get retrieves the wallet document
func (r *WalletRepo) Get(ctx context.Context) (*entities.Wallet, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return decode(raw)
}

// Create stores the wallet with SETNX so an existing wallet is never overwritten
func (r *WalletRepo) Create(ctx context.Context, wallet *entities.Wallet) (bool, error) {
	data, err := encode(wallet, 1)
	if err != nil {
		return false, err
	}

	ok, err := r.client.SetNX(ctx, r.key, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to create wallet: %w", err)
	}
	if ok {
		wallet.Version = 1
	}
	return ok, nil
}

// Replace overwrites the document inside WATCH/MULTI if its version still matches
func (r *WalletRepo) Replace(ctx context.Context, wallet *entities.Wallet) error {
	next := wallet.Version + 1

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, r.key).Bytes()
		if errors.Is(err, redis.Nil) {
			return repositories.ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to read wallet: %w", err)
		}

		current, err := decode(raw)
		if err != nil {
			return err
		}
		if current.Version != wallet.Version {
			return repositories.ErrVersionConflict
		}

		data, err := encode(wallet, next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, data, 0)
			return nil
		})
		return err
	}, r.key)

	if errors.Is(err, redis.TxFailedErr) {
		return repositories.ErrVersionConflict
	}
	if err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to replace wallet: %w", err)
	}

	wallet.Version = next
	return nil
}

// HealthCheck checks if Redis is reachable
func (r *WalletRepo) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func encode(wallet *entities.Wallet, version int64) ([]byte, error) {
	data, err := json.Marshal(storedWallet{
		Wallet:    *wallet,
		Version:   version,
		CreatedAt: wallet.CreatedAt,
		UpdatedAt: wallet.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode wallet document: %w", err)
	}
	return data, nil
}

func decode(raw []byte) (*entities.Wallet, error) {
	var stored storedWallet
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode wallet document: %w", err)
	}
	wallet := stored.Wallet
	wallet.Version = stored.Version
	wallet.CreatedAt = stored.CreatedAt
	wallet.UpdatedAt = stored.UpdatedAt
	return &wallet, nil
}
