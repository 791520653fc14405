package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bimakw/wallet-api/internal/domain/entities"
)

// Common test identifiers
const (
	WalletID  = "7b0c9a52-3f6e-4a8e-9d2b-1c5e7f9a0b11"
	TetherID  = "0f4e6b1a-8c2d-4e3f-a5b6-7c8d9e0f1a22"
	BitcoinID = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c33"
	UnknownID = "99999999-9999-4999-8999-999999999999"
)

// FixedTime is the clock used by fixtures
var FixedTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// SequentialIDs returns a generator yielding id-1, id-2, ...
func SequentialIDs(prefix string) func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&n, 1))
	}
}

// CloneWallet returns a deep copy so stored and returned wallets never share assets
func CloneWallet(w *entities.Wallet) *entities.Wallet {
	c := *w
	if w.Assets != nil {
		c.Assets = make([]entities.Asset, len(w.Assets))
		copy(c.Assets, w.Assets)
	}
	return &c
}

// CreateTestWallet creates the seed wallet with fixed ids
func CreateTestWallet(opts ...WalletOption) *entities.Wallet {
	w := entities.NewSeedWallet(WalletID, TetherID, FixedTime)
	w.Version = 1

	for _, opt := range opts {
		opt(w)
	}

	return w
}

type WalletOption func(*entities.Wallet)

func WithBalance(balance float64) WalletOption {
	return func(w *entities.Wallet) {
		w.Balance = balance
	}
}

func WithAssets(assets ...entities.Asset) WalletOption {
	return func(w *entities.Wallet) {
		w.Assets = assets
	}
}

func WithExtraAssets(assets ...entities.Asset) WalletOption {
	return func(w *entities.Wallet) {
		w.Assets = append(w.Assets, assets...)
	}
}

func WithVersion(version int64) WalletOption {
	return func(w *entities.Wallet) {
		w.Version = version
	}
}

// CreateTestAsset creates a Bitcoin asset
func CreateTestAsset(opts ...AssetOption) entities.Asset {
	a := entities.Asset{
		ID:                 BitcoinID,
		Symbol:             "BTC",
		Name:               "Bitcoin",
		Balance:            0.5,
		Equivalent:         30000,
		EquivalentCurrency: "USD",
		Icon:               "bitcoin",
	}

	for _, opt := range opts {
		opt(&a)
	}

	return a
}

type AssetOption func(*entities.Asset)

func AssetWithID(id string) AssetOption {
	return func(a *entities.Asset) {
		a.ID = id
	}
}

func AssetWithSymbol(symbol string) AssetOption {
	return func(a *entities.Asset) {
		a.Symbol = symbol
	}
}

func AssetWithBalance(balance float64) AssetOption {
	return func(a *entities.Asset) {
		a.Balance = balance
	}
}
