package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bimakw/wallet-api/internal/domain/entities"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
)

// Ensure WalletRepo implements WalletRepository
var _ repositories.WalletRepository = (*WalletRepo)(nil)

// walletDocument is the stored shape. Singleton carries a unique index so
// concurrent first writes cannot produce two wallets.
type walletDocument struct {
	entities.Wallet `bson:",inline"`
	Singleton       bool `bson:"singleton,omitempty"`
}

var singletonFilter = bson.D{{Key: "singleton", Value: true}}

// WalletRepo stores the wallet as a single MongoDB document
type WalletRepo struct {
	coll   *mongo.Collection
	health func(ctx context.Context) error
}

// NewWalletRepo creates a wallet repository on the given collection
func NewWalletRepo(client *Client, collection string) *WalletRepo {
	return &WalletRepo{
		coll:   client.Collection(collection),
		health: client.HealthCheck,
	}
}

// EnsureIndexes creates the unique index backing the single-wallet rule
func (r *WalletRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "singleton", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("wallet_singleton"),
	})
	if err != nil {
		return fmt.Errorf("failed to create wallet index: %w", err)
	}
	return nil
}

// Get retrieves the wallet document
func (r *WalletRepo) Get(ctx context.Context) (*entities.Wallet, error) {
	var doc walletDocument
	if err := r.coll.FindOne(ctx, singletonFilter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &doc.Wallet, nil
}

// Create upserts with $setOnInsert on the singleton filter, so an existing
// wallet is left untouched
func (r *WalletRepo) Create(ctx context.Context, wallet *entities.Wallet) (bool, error) {
	doc := walletDocument{Wallet: *wallet}
	doc.Version = 1

	res, err := r.coll.UpdateOne(ctx,
		singletonFilter,
		bson.D{{Key: "$setOnInsert", Value: doc}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create wallet: %w", err)
	}
	if res.UpsertedCount == 0 {
		return false, nil
	}

	wallet.Version = doc.Version
	return true, nil
}

// Replace overwrites the document if its version still matches
func (r *WalletRepo) Replace(ctx context.Context, wallet *entities.Wallet) error {
	next := walletDocument{Wallet: *wallet, Singleton: true}
	next.Version = wallet.Version + 1

	filter := bson.D{
		{Key: "_id", Value: wallet.ID},
		{Key: "version", Value: wallet.Version},
	}

	res, err := r.coll.ReplaceOne(ctx, filter, next)
	if err != nil {
		return fmt.Errorf("failed to replace wallet: %w", err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrVersionConflict
	}

	wallet.Version = next.Version
	return nil
}

// HealthCheck pings MongoDB
func (r *WalletRepo) HealthCheck(ctx context.Context) error {
	return r.health(ctx)
}
