package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/seif-emam/deveolp-network/pkg/config"
	"github.com/seif-emam/deveolp-network/pkg/messaging/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockAckableMsg struct {
	mock.Mock
}

func (m *mockAckableMsg) Data() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *mockAckableMsg) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockAckableMsg) Nak() error {
	args := m.Called()
	return args.Error(0)
}

type mockRefresher struct {
	calls int
	error error
}

func (m *mockRefresher) Refresh(_ context.Context) error {
	m.calls++
	return m.error
}

func payload(t *testing.T, origin string) []byte {
	t.Helper()
	data, err := json.Marshal(&events.ProductUpdatedEvent{
		ProductID: 7,
		Title:     "Backpack",
		Price:     109.95,
		Category:  "bags",
		Image:     "backpack.png",
		Origin:    origin,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return data
}

func Test_handleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	testCases := []struct {
		name        string
		refreshErr  error
		newMockMsg  func(t *testing.T) *mockAckableMsg
		wantRefresh int
	}{
		{
			name: "event from another instance",
			newMockMsg: func(t *testing.T) *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return(payload(t, "node-b")).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
			wantRefresh: 1,
		},
		{
			name: "own event",
			newMockMsg: func(t *testing.T) *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return(payload(t, "node-a")).Times(1)
				msg.On("Ack").Return(nil).Times(1)
				return msg
			},
			wantRefresh: 0,
		},
		{
			name:       "reload fails",
			refreshErr: errors.New("catalog down"),
			newMockMsg: func(t *testing.T) *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return(payload(t, "node-b")).Times(1)
				msg.On("Nak").Return(nil).Times(1)
				return msg
			},
			wantRefresh: 1,
		},
		{
			name: "invalid message",
			newMockMsg: func(*testing.T) *mockAckableMsg {
				msg := new(mockAckableMsg)
				msg.On("Data").Return([]byte("invalid data")).Times(1)
				msg.On("Nak").Return(nil).Times(1)
				return msg
			},
			wantRefresh: 0,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			mockMsg := tc.newMockMsg(t)
			refresher := &mockRefresher{error: tc.refreshErr}
			s := NewSubscriber(refresher, "node-a", config.SubscriberConfig{}, logger)

			// when
			s.handleMessage(context.Background(), mockMsg)

			// then
			mockMsg.AssertExpectations(t)
			assert.Equal(t, tc.wantRefresh, refresher.calls)
		})
	}
}
