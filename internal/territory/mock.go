package territory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"sectland-backend/internal/domain"
)

type mockClaim struct {
	owner  string
	center domain.Point
	units  int32
}

// MockStore is an in-memory ClaimStore used in tests and when no external
// territory backend is configured.
type MockStore struct {
	mu     sync.Mutex
	claims map[string]*mockClaim

	// FailNext causes the next mutating call to fail, for exercising
	// rollback paths in tests.
	FailNext bool
}

func NewMockStore() *MockStore {
	return &MockStore{claims: make(map[string]*mockClaim)}
}

func (m *MockStore) failIfRequested() error {
	if m.FailNext {
		m.FailNext = false
		return fmt.Errorf("claim store unavailable: %w", domain.ErrExternalStore)
	}
	return nil
}

func (m *MockStore) CreateClaim(_ context.Context, ownerRef string, center domain.Point, units int32) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failIfRequested(); err != nil {
		return "", err
	}
	if units <= 0 {
		return "", fmt.Errorf("claim size must be positive: %w", domain.ErrValidation)
	}
	id := uuid.NewString()
	m.claims[id] = &mockClaim{owner: ownerRef, center: center, units: units}
	return id, nil
}

func (m *MockStore) ResizeClaim(_ context.Context, claimID string, deltaUnits int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failIfRequested(); err != nil {
		return err
	}
	c, ok := m.claims[claimID]
	if !ok {
		return fmt.Errorf("claim %s: %w", claimID, domain.ErrNotFound)
	}
	if c.units+deltaUnits <= 0 {
		return fmt.Errorf("resize would empty claim %s: %w", claimID, domain.ErrValidation)
	}
	c.units += deltaUnits
	return nil
}

func (m *MockStore) DeleteClaim(_ context.Context, claimID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failIfRequested(); err != nil {
		return err
	}
	if _, ok := m.claims[claimID]; !ok {
		return fmt.Errorf("claim %s: %w", claimID, domain.ErrNotFound)
	}
	delete(m.claims, claimID)
	return nil
}

func (m *MockStore) TransferOwnership(_ context.Context, claimID, newOwnerRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failIfRequested(); err != nil {
		return err
	}
	c, ok := m.claims[claimID]
	if !ok {
		return fmt.Errorf("claim %s: %w", claimID, domain.ErrNotFound)
	}
	c.owner = newOwnerRef
	return nil
}

func (m *MockStore) ClaimSize(_ context.Context, claimID string) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[claimID]
	if !ok {
		return 0, fmt.Errorf("claim %s: %w", claimID, domain.ErrNotFound)
	}
	return c.units, nil
}

func (m *MockStore) ClaimOwner(_ context.Context, claimID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[claimID]
	if !ok {
		return "", fmt.Errorf("claim %s: %w", claimID, domain.ErrNotFound)
	}
	return c.owner, nil
}

// Seed installs a claim with a known id. Test helper.
func (m *MockStore) Seed(claimID, ownerRef string, center domain.Point, units int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims[claimID] = &mockClaim{owner: ownerRef, center: center, units: units}
}

// Has reports whether a claim id is still present. Test helper.
func (m *MockStore) Has(claimID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.claims[claimID]
	return ok
}
