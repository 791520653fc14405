//go:build integration

package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimakw/wallet-api/internal/domain/entities"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
	"github.com/bimakw/wallet-api/internal/testutil"
)

// To run: DATABASE_TEST_URL=postgres://... go test -tags=integration ./internal/infrastructure/database/
func setupWalletRepo(t *testing.T) *WalletRepo {
	t.Helper()

	dsn := os.Getenv("DATABASE_TEST_URL")
	if dsn == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewWalletRepo(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))
	_, err = db.ExecContext(ctx, `DELETE FROM wallet_documents`)
	require.NoError(t, err)

	return repo
}

func TestWalletRepo_Postgres_Lifecycle(t *testing.T) {
	repo := setupWalletRepo(t)
	ctx := context.Background()

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	seed := entities.NewSeedWallet(testutil.WalletID, testutil.TetherID, testutil.FixedTime)
	created, err := repo.Create(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), seed.Version)

	again, err := repo.Create(ctx, entities.NewSeedWallet(testutil.UnknownID, testutil.BitcoinID, testutil.FixedTime))
	require.NoError(t, err)
	assert.False(t, again)

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testutil.WalletID, got.ID)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.Assets, 1)

	got.Assets = append(got.Assets, testutil.CreateTestAsset(), testutil.CreateTestAsset(testutil.AssetWithID("")))
	require.NoError(t, repo.Replace(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	stale := testutil.CloneWallet(got)
	stale.Version = 1
	assert.ErrorIs(t, repo.Replace(ctx, stale), repositories.ErrVersionConflict)

	reread, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Len(t, reread.Assets, 3)
	assert.Empty(t, reread.Assets[2].ID)
	assert.Equal(t, int64(2), reread.Version)
}

func TestWalletRepo_Postgres_ConcurrentCreate(t *testing.T) {
	repo := setupWalletRepo(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	results := make(chan bool, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := entities.NewSeedWallet(fmt.Sprintf("wallet-%d", i), testutil.TetherID, testutil.FixedTime)
			ok, err := repo.Create(ctx, w)
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
