package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/seif-emam/deveolp-network/pkg/messaging"
	"github.com/seif-emam/deveolp-network/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStream struct {
	mock.Mock
}

func (m *mockStream) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, payload)
	ack, _ := args.Get(0).(*jetstream.PubAck)
	return ack, args.Error(1)
}

func TestNatsPublisher_Publish(t *testing.T) {
	event := events.ProductUpdatedEvent{
		ProductID: 3,
		Title:     "Mens Cotton Jacket",
		Price:     55.99,
		Category:  "men's clothing",
		UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	testCases := []struct {
		name      string
		publishEr error
		wantErr   bool
	}{
		{name: "published"},
		{name: "broker error", publishEr: errors.New("no responders"), wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			stream := new(mockStream)
			stream.On("Publish", mock.Anything, messaging.ProductsUpdatedSubject, mock.MatchedBy(func(b []byte) bool {
				var got events.ProductUpdatedEvent
				return json.Unmarshal(b, &got) == nil && got.ProductID == 3
			})).Return(&jetstream.PubAck{Stream: "CATALOG"}, tc.publishEr)
			publisher := &NatsPublisher{js: stream}

			// when
			err := publisher.Publish(context.Background(), event)

			// then
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), messaging.ProductsUpdatedSubject)
			} else {
				require.NoError(t, err)
			}
			stream.AssertExpectations(t)
		})
	}
}
