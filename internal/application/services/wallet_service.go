package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-api/internal/domain/entities"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
	"github.com/bimakw/wallet-api/internal/infrastructure/cache"
)

const walletCacheKey = "wallet:current"

// Mutation operation names used for metrics and logs
const (
	OpReplaceWallet = "replace_wallet"
	OpAddAsset      = "add_asset"
	OpUpdateAsset   = "update_asset"
	OpDeleteAsset   = "delete_asset"
)

// MutationRecorder receives the outcome of every wallet mutation
type MutationRecorder interface {
	ObserveMutation(operation, result string)
	SetAssetCount(n int)
}

// WalletService owns the single wallet document: initialization, reads and
// read-modify-write mutations of the wallet and its assets
type WalletService struct {
	repo                repositories.WalletRepository
	cache               *cache.RedisCache
	cacheDisabled       atomic.Bool
	logger              *zap.Logger
	metrics             MutationRecorder
	mintMissingAssetIDs bool
	newID               func() string
	now                 func() time.Time
}

// WalletOption customizes a WalletService
type WalletOption func(*WalletService)

// WithMetrics records mutation outcomes on m
func WithMetrics(m MutationRecorder) WalletOption {
	return func(s *WalletService) {
		s.metrics = m
	}
}

// WithMintMissingAssetIDs makes ReplaceWallet assign ids to assets submitted without one
func WithMintMissingAssetIDs(enabled bool) WalletOption {
	return func(s *WalletService) {
		s.mintMissingAssetIDs = enabled
	}
}

// WithIDGenerator overrides the id scheme
func WithIDGenerator(fn func() string) WalletOption {
	return func(s *WalletService) {
		s.newID = fn
	}
}

// WithClock overrides the time source
func WithClock(fn func() time.Time) WalletOption {
	return func(s *WalletService) {
		s.now = fn
	}
}

// NewWalletService creates a new wallet service
func NewWalletService(
	repo repositories.WalletRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
	opts ...WalletOption,
) *WalletService {
	s := &WalletService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PnlDTO is the API representation of the profit/loss summary
type PnlDTO struct {
	Value      float64 `json:"value"`
	Percentage string  `json:"percentage"`
}

// AssetDTO is the API representation of an asset
type AssetDTO struct {
	ID                 string  `json:"id,omitempty"`
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	Balance            float64 `json:"balance"`
	Equivalent         float64 `json:"equivalent"`
	EquivalentCurrency string  `json:"equivalentCurrency"`
	Icon               string  `json:"icon"`
}

// WalletDTO is the API representation of the wallet
type WalletDTO struct {
	ID                 string     `json:"id"`
	Balance            float64    `json:"balance"`
	Currency           string     `json:"currency"`
	EquivalentBalance  float64    `json:"equivalentBalance"`
	EquivalentCurrency string     `json:"equivalentCurrency"`
	Pnl                PnlDTO     `json:"pnl"`
	Assets             []AssetDTO `json:"assets"`
}

// AssetInput carries validated asset fields. ID is only read by ReplaceWallet.
type AssetInput struct {
	ID                 string
	Symbol             string
	Name               string
	Balance            float64
	Equivalent         float64
	EquivalentCurrency string
	Icon               string
}

// WalletInput carries a validated full wallet replacement
type WalletInput struct {
	Balance            float64
	Currency           string
	EquivalentBalance  float64
	EquivalentCurrency string
	Pnl                entities.Pnl
	Assets             []AssetInput
}

// EnsureInitialized writes the seed wallet if the store holds none.
// Calling it again once a wallet exists does nothing.
func (s *WalletService) EnsureInitialized(ctx context.Context) error {
	existing, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to check wallet: %w", err)
	}
	if existing != nil {
		s.logger.Debug("Wallet already initialized", zap.String("wallet_id", existing.ID))
		s.setAssetCount(len(existing.Assets))
		return nil
	}

	seed := entities.NewSeedWallet(s.newID(), s.newID(), s.now())
	created, err := s.repo.Create(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	if created {
		s.logger.Info("Initialized wallet with seed data", zap.String("wallet_id", seed.ID))
		s.setAssetCount(len(seed.Assets))
	} else {
		s.logger.Info("Wallet was initialized by another instance")
	}

	return nil
}

// GetWallet returns the current wallet
func (s *WalletService) GetWallet(ctx context.Context) (*WalletDTO, error) {
	if c := s.activeCache(); c != nil {
		var cached WalletDTO
		_, err := c.Get(ctx, walletCacheKey, &cached)
		if err == nil {
			s.logger.Debug("Cache hit", zap.String("key", walletCacheKey))
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Failed to read wallet cache", zap.Error(err))
		}
	}

	wallet, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		return nil, ErrWalletNotFound
	}

	response := walletToDTO(wallet)

	// A write that committed after our read has cached a higher version,
	// which Set refuses to overwrite
	if c := s.activeCache(); c != nil {
		if _, err := c.Set(ctx, walletCacheKey, wallet.Version, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

// ReplaceWallet overwrites the wallet fields, pnl and the whole asset list.
// Incoming asset ids are kept; assets without one stay id-less unless id
// minting is enabled.
func (s *WalletService) ReplaceWallet(ctx context.Context, input WalletInput) (*WalletDTO, error) {
	wallet, err := s.mutate(ctx, OpReplaceWallet, func(w *entities.Wallet) error {
		w.Balance = input.Balance
		w.Currency = input.Currency
		w.EquivalentBalance = input.EquivalentBalance
		w.EquivalentCurrency = input.EquivalentCurrency
		w.Pnl = input.Pnl

		seen := make(map[string]struct{}, len(input.Assets))
		assets := make([]entities.Asset, 0, len(input.Assets))
		for _, in := range input.Assets {
			asset := assetFromInput(in)
			asset.ID = in.ID
			if asset.ID != "" {
				if _, dup := seen[asset.ID]; dup {
					return fmt.Errorf("%w: %s", ErrDuplicateAssetID, asset.ID)
				}
				seen[asset.ID] = struct{}{}
			}
			if asset.ID == "" && s.mintMissingAssetIDs {
				asset.ID = s.newID()
			}
			assets = append(assets, asset)
		}
		w.Assets = assets
		return nil
	})
	if err != nil {
		return nil, err
	}

	return walletToDTO(wallet), nil
}

// AddAsset appends a new asset with a freshly minted id
func (s *WalletService) AddAsset(ctx context.Context, input AssetInput) (*AssetDTO, error) {
	var added entities.Asset
	_, err := s.mutate(ctx, OpAddAsset, func(w *entities.Wallet) error {
		added = assetFromInput(input)
		added.ID = s.newID()
		for w.FindAsset(added.ID) >= 0 {
			added.ID = s.newID()
		}
		w.Assets = append(w.Assets, added)
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := assetToDTO(added)
	return &dto, nil
}

// UpdateAsset replaces every field of the asset with the given id except the id
func (s *WalletService) UpdateAsset(ctx context.Context, id string, input AssetInput) (*AssetDTO, error) {
	var updated entities.Asset
	_, err := s.mutate(ctx, OpUpdateAsset, func(w *entities.Wallet) error {
		idx := w.FindAsset(id)
		if idx < 0 {
			return &AssetNotFoundError{ID: id}
		}
		updated = assetFromInput(input)
		updated.ID = w.Assets[idx].ID
		w.Assets[idx] = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := assetToDTO(updated)
	return &dto, nil
}

// DeleteAsset removes the asset with the given id
func (s *WalletService) DeleteAsset(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, OpDeleteAsset, func(w *entities.Wallet) error {
		idx := w.FindAsset(id)
		if idx < 0 {
			return &AssetNotFoundError{ID: id}
		}
		w.Assets = append(w.Assets[:idx], w.Assets[idx+1:]...)
		return nil
	})
	return err
}

// mutate loads the wallet, applies fn and writes the whole document back
// guarded by the version that was read
func (s *WalletService) mutate(ctx context.Context, op string, fn func(w *entities.Wallet) error) (*entities.Wallet, error) {
	wallet, err := s.repo.Get(ctx)
	if err != nil {
		s.observe(op, "error")
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	if wallet == nil {
		s.observe(op, "not_found")
		return nil, ErrWalletNotFound
	}

	if err := fn(wallet); err != nil {
		s.observe(op, resultFor(err))
		return nil, err
	}
	wallet.UpdatedAt = s.now()

	if err := s.repo.Replace(ctx, wallet); err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			s.logger.Warn("Concurrent wallet modification",
				zap.String("operation", op),
				zap.Int64("version", wallet.Version),
			)
			s.observe(op, "conflict")
			return nil, ErrConflict
		}
		s.observe(op, "error")
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	s.refreshCache(ctx, wallet)
	s.observe(op, "ok")
	s.setAssetCount(len(wallet.Assets))

	return wallet, nil
}

// activeCache returns the cache unless it is absent or was disabled
func (s *WalletService) activeCache() *cache.RedisCache {
	if s.cache == nil || s.cacheDisabled.Load() {
		return nil
	}
	return s.cache
}

// refreshCache stores the freshly written wallet. If that fails the entry may
// be stale, so it is dropped and this instance stops using the cache.
func (s *WalletService) refreshCache(ctx context.Context, wallet *entities.Wallet) {
	c := s.activeCache()
	if c == nil {
		return
	}

	_, err := c.Set(ctx, walletCacheKey, wallet.Version, walletToDTO(wallet))
	if err == nil {
		return
	}

	fields := []zap.Field{zap.Int64("version", wallet.Version), zap.Error(err)}
	if delErr := c.Delete(ctx, walletCacheKey); delErr != nil {
		fields = append(fields, zap.NamedError("delete_error", delErr))
	}
	s.cacheDisabled.Store(true)
	s.logger.Error("Failed to refresh wallet cache, disabling cache", fields...)
}

func (s *WalletService) observe(op, result string) {
	if s.metrics != nil {
		s.metrics.ObserveMutation(op, result)
	}
}

func (s *WalletService) setAssetCount(n int) {
	if s.metrics != nil {
		s.metrics.SetAssetCount(n)
	}
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrWalletNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateAssetID):
		return "invalid"
	default:
		return "error"
	}
}

// assetFromInput copies input fields, leaving ID for the caller
func assetFromInput(in AssetInput) entities.Asset {
	icon := in.Icon
	if icon == "" {
		icon = entities.DefaultAssetIcon
	}
	return entities.Asset{
		Symbol:             in.Symbol,
		Name:               in.Name,
		Balance:            in.Balance,
		Equivalent:         in.Equivalent,
		EquivalentCurrency: in.EquivalentCurrency,
		Icon:               icon,
	}
}

func assetToDTO(a entities.Asset) AssetDTO {
	return AssetDTO{
		ID:                 a.ID,
		Symbol:             a.Symbol,
		Name:               a.Name,
		Balance:            a.Balance,
		Equivalent:         a.Equivalent,
		EquivalentCurrency: a.EquivalentCurrency,
		Icon:               a.Icon,
	}
}

// walletToDTO converts a wallet entity to a DTO
func walletToDTO(w *entities.Wallet) *WalletDTO {
	assets := make([]AssetDTO, len(w.Assets))
	for i, a := range w.Assets {
		assets[i] = assetToDTO(a)
	}
	return &WalletDTO{
		ID:                 w.ID,
		Balance:            w.Balance,
		Currency:           w.Currency,
		EquivalentBalance:  w.EquivalentBalance,
		EquivalentCurrency: w.EquivalentCurrency,
		Pnl: PnlDTO{
			Value:      w.Pnl.Value,
			Percentage: w.Pnl.Percentage,
		},
		Assets: assets,
	}
}
