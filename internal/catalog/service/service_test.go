package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/seif-emam/deveolp-network/internal/catalog"
	"github.com/seif-emam/deveolp-network/internal/catalog/state"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"github.com/seif-emam/deveolp-network/pkg/messaging"
	"github.com/seif-emam/deveolp-network/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mockRemote is a mock implementation of the Remote interface
type mockRemote struct {
	mu         sync.Mutex
	products   []catalog.Product
	product    *catalog.Product
	categories []string
	error      error
	listError  error
	updated    *catalog.Product
	updateErr  error
	listCalls  int
	lastUpdate catalog.ProductUpdate
}

func (m *mockRemote) ListProducts(_ context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listError != nil {
		return nil, m.listError
	}
	return m.products, nil
}

func (m *mockRemote) GetProduct(_ context.Context, _ int) (*catalog.Product, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockRemote) UpdateProduct(_ context.Context, _ int, update catalog.ProductUpdate) (*catalog.Product, error) {
	m.lastUpdate = update
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.updated, nil
}

func (m *mockRemote) ListCategories(_ context.Context) ([]string, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.categories, nil
}

type mockPublisher struct {
	events []messaging.Event
	error  error
}

func (m *mockPublisher) Publish(_ context.Context, event messaging.Event) error {
	m.events = append(m.events, event)
	return m.error
}

func newTestService(remote *mockRemote, publisher messaging.Publisher) (*Service, *state.Holder) {
	holder := state.NewHolder(remote, testLogger)
	return NewService(remote, holder, publisher, "node-a", testLogger), holder
}

func Test_Service_Snapshot(t *testing.T) {
	testCases := []struct {
		name        string
		remote      *mockRemote
		wantErr     bool
		expectedLen int
		expectedMsg string
	}{
		{
			name:        "loaded",
			remote:      &mockRemote{products: []catalog.Product{{ID: 1}, {ID: 2}}},
			expectedLen: 2,
		},
		{
			name:        "load failure is reported in the snapshot",
			remote:      &mockRemote{listError: errors.New("dial tcp: refused")},
			wantErr:     true,
			expectedMsg: state.LoadErrorMessage,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, _ := newTestService(tc.remote, nil)

			// when
			snap, err := svc.Snapshot(context.Background())

			// then
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, snap.Products, tc.expectedLen)
			assert.Equal(t, tc.expectedMsg, snap.Err)
			assert.False(t, snap.Loading)
		})
	}
}

func Test_Service_FindByID(t *testing.T) {
	testCases := []struct {
		name        string
		remote      *mockRemote
		expectedErr error
	}{
		{name: "found", remote: &mockRemote{product: &catalog.Product{ID: 3, Title: "Ring"}}},
		{name: "not found", remote: &mockRemote{error: catalogerrors.ErrProductNotFound}, expectedErr: catalogerrors.ErrProductNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, _ := newTestService(tc.remote, nil)

			// when
			product, err := svc.FindByID(context.Background(), 3)

			// then
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, product)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, product.ID)
		})
	}
}

func Test_Service_Update(t *testing.T) {
	// given
	updated := &catalog.Product{ID: 4, Title: "Updated jacket", Price: 40, Category: "men's clothing", Image: "jacket.png"}
	remote := &mockRemote{
		products: []catalog.Product{{ID: 4, Title: "Old jacket"}},
		updated:  updated,
	}
	publisher := &mockPublisher{}
	svc, holder := newTestService(remote, publisher)
	_, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	genBefore := holder.Snapshot().Generation
	update := catalog.ProductUpdate{Title: "Updated jacket", Price: 40, Category: "men's clothing", Description: "warm and dry", Image: "jacket.png"}

	// when
	got, err := svc.Update(context.Background(), 4, update)

	// then
	require.NoError(t, err)
	assert.Equal(t, updated, got)
	assert.Equal(t, update, remote.lastUpdate)
	assert.Equal(t, 2, remote.listCalls, "collection is refetched after the update")
	assert.Equal(t, genBefore+1, holder.Snapshot().Generation)
	require.Len(t, publisher.events, 1)
	event, ok := publisher.events[0].(events.ProductUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, 4, event.ProductID)
	assert.Equal(t, "node-a", event.Origin)
	assert.Equal(t, messaging.ProductsUpdatedSubject, event.Subject())
}

func Test_Service_Update_Failure(t *testing.T) {
	// given
	remote := &mockRemote{updateErr: errors.New("502 bad gateway")}
	publisher := &mockPublisher{}
	svc, holder := newTestService(remote, publisher)

	// when
	got, err := svc.Update(context.Background(), 4, catalog.ProductUpdate{})

	// then
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Empty(t, publisher.events, "nothing is published for a failed update")
	assert.Zero(t, holder.Snapshot().Generation, "catalog is not invalidated")
	assert.Zero(t, remote.listCalls)
}

func Test_Service_Update_PublishFailureIsNotFatal(t *testing.T) {
	// given
	remote := &mockRemote{updated: &catalog.Product{ID: 1}}
	svc, _ := newTestService(remote, &mockPublisher{error: errors.New("nats: no responders")})

	// when
	got, err := svc.Update(context.Background(), 1, catalog.ProductUpdate{})

	// then
	require.NoError(t, err)
	assert.Equal(t, 1, got.ID)
}
