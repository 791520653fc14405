//go:build integration

package mongodb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-api/internal/config"
	"github.com/bimakw/wallet-api/internal/domain/entities"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
	"github.com/bimakw/wallet-api/internal/testutil"
)

// To run: MONGODB_TEST_URI=mongodb://localhost:27017 go test -tags=integration ./internal/infrastructure/mongodb/
func setupWalletRepo(t *testing.T) *WalletRepo {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx := context.Background()
	client, err := NewClient(ctx, config.MongoConfig{
		URI:                    uri,
		Database:               "wallet_test",
		ConnectTimeout:         10 * time.Second,
		SocketTimeout:          45 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
		MaxPoolSize:            5,
		MinPoolSize:            1,
		MaxConnecting:          2,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	coll := fmt.Sprintf("wallets_%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = client.Collection(coll).Drop(context.Background()) })

	repo := NewWalletRepo(client, coll)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestWalletRepo_Mongo_Lifecycle(t *testing.T) {
	repo := setupWalletRepo(t)
	ctx := context.Background()

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	seed := entities.NewSeedWallet(testutil.WalletID, testutil.TetherID, testutil.FixedTime)
	created, err := repo.Create(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)

	again, err := repo.Create(ctx, entities.NewSeedWallet(testutil.UnknownID, testutil.BitcoinID, testutil.FixedTime))
	require.NoError(t, err)
	assert.False(t, again)

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testutil.WalletID, got.ID)
	assert.Equal(t, int64(1), got.Version)

	got.Assets = append(got.Assets, testutil.CreateTestAsset(testutil.AssetWithID("")))
	require.NoError(t, repo.Replace(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	stale := testutil.CloneWallet(got)
	stale.Version = 1
	assert.ErrorIs(t, repo.Replace(ctx, stale), repositories.ErrVersionConflict)

	// Replaced documents stay reachable through the singleton filter
	reread, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, reread)
	require.Len(t, reread.Assets, 2)
	assert.Empty(t, reread.Assets[1].ID)
}

func TestWalletRepo_Mongo_ConcurrentCreate(t *testing.T) {
	repo := setupWalletRepo(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.Create(ctx, entities.NewSeedWallet(fmt.Sprintf("wallet-%d", i), testutil.TetherID, testutil.FixedTime))
			assert.NoError(t, err)
			results <- ok
		}(i)
	}
	wg.Wait()
	close(results)

	createdCount := 0
	for ok := range results {
		if ok {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount)
}
