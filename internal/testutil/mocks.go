package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/bimakw/wallet-api/internal/domain/entities"
	"github.com/bimakw/wallet-api/internal/domain/repositories"
)

// Ensure MockWalletRepository implements WalletRepository
var _ repositories.WalletRepository = (*MockWalletRepository)(nil)

type MockCall struct {
	Method string
	Args   []interface{}
}

// MockWalletRepository is an in-memory implementation of WalletRepository
// with the same version semantics as the real backends
type MockWalletRepository struct {
	mu     sync.RWMutex
	wallet *entities.Wallet

	// Function hooks for custom behavior
	GetFunc         func(ctx context.Context) (*entities.Wallet, error)
	CreateFunc      func(ctx context.Context, wallet *entities.Wallet) (bool, error)
	ReplaceFunc     func(ctx context.Context, wallet *entities.Wallet) error
	HealthCheckFunc func(ctx context.Context) error

	// Call tracking
	Calls []MockCall
}

func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{
		Calls: make([]MockCall, 0),
	}
}

func (m *MockWalletRepository) track(method string, args ...interface{}) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
	m.mu.Unlock()
}

func (m *MockWalletRepository) Get(ctx context.Context) (*entities.Wallet, error) {
	m.track("Get")

	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.wallet == nil {
		return nil, nil
	}
	return CloneWallet(m.wallet), nil
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *entities.Wallet) (bool, error) {
	m.track("Create", wallet)

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, wallet)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.wallet != nil {
		return false, nil
	}
	wallet.Version = 1
	m.wallet = CloneWallet(wallet)
	return true, nil
}

func (m *MockWalletRepository) Replace(ctx context.Context, wallet *entities.Wallet) error {
	m.track("Replace", wallet)

	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, wallet)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.wallet == nil || m.wallet.ID != wallet.ID || m.wallet.Version != wallet.Version {
		return repositories.ErrVersionConflict
	}
	wallet.Version++
	m.wallet = CloneWallet(wallet)
	return nil
}

func (m *MockWalletRepository) HealthCheck(ctx context.Context) error {
	m.track("HealthCheck")

	if m.HealthCheckFunc != nil {
		return m.HealthCheckFunc(ctx)
	}
	return nil
}

// SetWallet stores wallet directly, bypassing version checks
func (m *MockWalletRepository) SetWallet(wallet *entities.Wallet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wallet == nil {
		m.wallet = nil
		return
	}
	m.wallet = CloneWallet(wallet)
}

// Wallet returns a copy of the stored wallet
func (m *MockWalletRepository) Wallet() *entities.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.wallet == nil {
		return nil
	}
	return CloneWallet(m.wallet)
}

// CallCount returns how many times method was called
func (m *MockWalletRepository) CallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// MockMutationRecorder records wallet mutation outcomes
type MockMutationRecorder struct {
	mu         sync.Mutex
	Mutations  []string
	AssetCount int
}

func (m *MockMutationRecorder) ObserveMutation(operation, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mutations = append(m.Mutations, operation+":"+result)
}

func (m *MockMutationRecorder) SetAssetCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AssetCount = n
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	var err error
	if !healthy {
		err = errors.New("health check failed")
	}
	return &MockHealthChecker{
		Healthy: healthy,
		Error:   err,
		Calls:   make([]MockCall, 0),
	}
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck", Args: nil})
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Error
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}
