package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/catalog"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogRepo struct {
	products map[string]*catalog.ProductFacts
	gets     int
}

func (f *fakeCatalogRepo) GetProduct(_ context.Context, sku string) (*catalog.ProductFacts, error) {
	f.gets++
	return f.products[sku], nil
}

type fakeStockClient struct {
	levels map[string]int
	getErr error
	sets   map[string]int
}

func (f *fakeStockClient) GetOrderGUID(context.Context, string) (string, error) { return "", nil }
func (f *fakeStockClient) DispatchCandidates(context.Context, oms.DispatchCandidatesRequest) ([]oms.DispatchedOrder, error) {
	return nil, nil
}
func (f *fakeStockClient) GetDispatchedOrder(context.Context, string) (*oms.DispatchedOrder, error) {
	return nil, nil
}

func (f *fakeStockClient) GetStockLevel(_ context.Context, sku string) (int, error) {
	if f.getErr != nil {
		return 0, f.getErr
	}
	return f.levels[sku], nil
}

func (f *fakeStockClient) SetStockLevel(_ context.Context, sku string, level int) error {
	if f.sets == nil {
		f.sets = make(map[string]int)
	}
	f.sets[sku] = level
	return nil
}

type lockCall struct {
	key   string
	value string
}

type fakeLocker struct {
	busy     bool
	acquired []lockCall
	released []lockCall
}

func (f *fakeLocker) AcquireLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	if f.busy {
		return false, nil
	}
	f.acquired = append(f.acquired, lockCall{key: key, value: value})
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, key, value string) error {
	f.released = append(f.released, lockCall{key: key, value: value})
	return nil
}

func TestGetProductWithoutCache(t *testing.T) {
	repo := &fakeCatalogRepo{products: map[string]*catalog.ProductFacts{
		"SKU-A": {SKU: "SKU-A", Name: "Widget"},
	}}
	uc := NewCatalogUseCase(repo, &fakeStockClient{}, nil, false, logger.NewNop())

	facts, err := uc.GetProduct(context.Background(), "SKU-A")
	require.NoError(t, err)
	require.NotNil(t, facts)
	assert.Equal(t, "Widget", facts.Name)

	facts, err = uc.GetProduct(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.Nil(t, facts)
	assert.Equal(t, 2, repo.gets)
}

func TestUpdateStockLevelAppliesDelta(t *testing.T) {
	client := &fakeStockClient{levels: map[string]int{"SKU-A": 100}}
	uc := NewCatalogUseCase(&fakeCatalogRepo{}, client, nil, false, logger.NewNop())

	require.NoError(t, uc.UpdateStockLevel(context.Background(), "SKU-A", -30))
	assert.Equal(t, 70, client.sets["SKU-A"])
}

func TestUpdateStockLevelDebugSkipsWrite(t *testing.T) {
	client := &fakeStockClient{levels: map[string]int{"SKU-A": 100}}
	uc := NewCatalogUseCase(&fakeCatalogRepo{}, client, nil, true, logger.NewNop())

	require.NoError(t, uc.UpdateStockLevel(context.Background(), "SKU-A", -30))
	assert.Empty(t, client.sets)
}

func TestUpdateStockLevelHoldsLock(t *testing.T) {
	client := &fakeStockClient{levels: map[string]int{"SKU-A": 100}}
	lock := &fakeLocker{}
	uc := &catalogUseCase{
		repo:   &fakeCatalogRepo{},
		oms:    client,
		locker: lock,
		logger: logger.NewNop(),
	}

	require.NoError(t, uc.UpdateStockLevel(context.Background(), "SKU-A", -30))
	assert.Equal(t, 70, client.sets["SKU-A"])

	require.Len(t, lock.acquired, 1)
	assert.Equal(t, "catalog:stock-lock:SKU-A", lock.acquired[0].key)
	// Released with the same holder token it was acquired with.
	assert.Equal(t, lock.acquired, lock.released)
}

func TestUpdateStockLevelLockBusy(t *testing.T) {
	client := &fakeStockClient{levels: map[string]int{"SKU-A": 100}}
	lock := &fakeLocker{busy: true}
	uc := &catalogUseCase{
		repo:   &fakeCatalogRepo{},
		oms:    client,
		locker: lock,
		logger: logger.NewNop(),
	}

	err := uc.UpdateStockLevel(context.Background(), "SKU-A", -30)
	require.Error(t, err)
	assert.Empty(t, client.sets)
	assert.Empty(t, lock.released)
}

func TestUpdateStockLevelReadFailure(t *testing.T) {
	client := &fakeStockClient{getErr: errors.New("oms down")}
	uc := NewCatalogUseCase(&fakeCatalogRepo{}, client, nil, false, logger.NewNop())

	err := uc.UpdateStockLevel(context.Background(), "SKU-A", -30)
	require.Error(t, err)
	assert.Empty(t, client.sets)
}
