package usecases

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/infrastructure"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetchResult struct {
	conn *entities.BotConnection
	err  error
}

// gatedSource blocks the n-th fetch until gates[n] receives a result.
type gatedSource struct {
	mu      sync.Mutex
	calls   int
	gates   []chan fetchResult
	started chan int
}

func newGatedSource(n int) *gatedSource {
	src := &gatedSource{started: make(chan int, n)}
	for i := 0; i < n; i++ {
		src.gates = append(src.gates, make(chan fetchResult, 1))
	}
	return src
}

func (s *gatedSource) FetchStatus(ctx context.Context, _ entities.AuthUser) (*entities.BotConnection, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.mu.Unlock()
	s.started <- idx
	select {
	case r := <-s.gates[idx]:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type staticSource struct {
	conn *entities.BotConnection
	err  error
}

func (s staticSource) FetchStatus(context.Context, entities.AuthUser) (*entities.BotConnection, error) {
	return s.conn, s.err
}

type fakeTrigger struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeTrigger) RequestQR(context.Context, entities.AuthUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func botRow(status string) *entities.BotConnection {
	return &entities.BotConnection{Token: "u-1", Status: &status}
}

var testUser = entities.AuthUser{ID: "u-1", Company: "acme"}

func TestDeriveState(t *testing.T) {
	require.Equal(t, StateConnected, DeriveState("open"))
	require.Equal(t, StateDisconnected, DeriveState("close"))
	require.Equal(t, StateAwaitingScan, DeriveState("AGUARDANDO_QRCODE"))
	require.Equal(t, StateUnknown, DeriveState(""))
	require.Equal(t, StateUnknown, DeriveState("connecting"))
}

func TestBuildView(t *testing.T) {
	require.Equal(t, StateUnknown, BuildView(nil, zap.NewNop()).State)

	uri, err := infrastructure.QRCodeDataURI("2@pairing")
	require.NoError(t, err)

	status, number := entities.BotStatusAwaitingQR, "5511912345678"
	raw := "2@pairing"
	view := BuildView(&entities.BotConnection{Status: &status, QRCode: &raw, PhoneNumber: &number}, zap.NewNop())
	require.Equal(t, StateAwaitingScan, view.State)
	require.Equal(t, uri, view.QRCode)
	require.Equal(t, number, view.Phone)
}

func TestBotPoller_StaleResponseNeverWins(t *testing.T) {
	src := newGatedSource(2)
	p := NewBotPoller(testUser, src, &fakeTrigger{}, time.Hour, zap.NewNop())
	ctx := context.Background()

	done1 := make(chan error, 1)
	go func() { done1 <- p.Poll(ctx) }()
	<-src.started

	done2 := make(chan error, 1)
	go func() { done2 <- p.Poll(ctx) }()
	<-src.started

	src.gates[1] <- fetchResult{conn: botRow(entities.BotStatusOpen)}
	require.NoError(t, <-done2)
	require.Equal(t, StateConnected, p.View().State)

	src.gates[0] <- fetchResult{conn: botRow(entities.BotStatusClose)}
	require.NoError(t, <-done1)

	view := p.View()
	require.Equal(t, StateConnected, view.State)
	require.Equal(t, uint64(2), view.Seq)
}

func TestBotPoller_FailedPollKeepsView(t *testing.T) {
	src := newGatedSource(2)
	p := NewBotPoller(testUser, src, &fakeTrigger{}, time.Hour, zap.NewNop())
	ctx := context.Background()

	src.gates[0] <- fetchResult{conn: botRow(entities.BotStatusOpen)}
	require.NoError(t, p.Poll(ctx))

	src.gates[1] <- fetchResult{err: fmt.Errorf("get bot: %w", entities.ErrTimeout)}
	require.True(t, entities.IsTimeout(p.Poll(ctx)))
	require.Equal(t, StateConnected, p.View().State)
}

func TestBotPoller_GenerateQRIsOptimistic(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"accepted", nil},
		{"rejected", &entities.APIError{Status: http.StatusInternalServerError, Message: "failed to generate QR code"}},
		{"timed out", entities.ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qr := "iVBORw0KGgo="
			conn := botRow(entities.BotStatusClose)
			conn.QRCode = &qr
			p := NewBotPoller(testUser, staticSource{conn: conn}, &fakeTrigger{err: tt.err}, time.Hour, zap.NewNop())
			require.NoError(t, p.Poll(context.Background()))
			require.NotEmpty(t, p.View().QRCode)

			view, err := p.GenerateQR(context.Background())
			if tt.err == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.err)
			}
			require.Equal(t, StateAwaitingScan, view.State)
			require.Empty(t, view.QRCode)
		})
	}
}

func TestBotPoller_ThrottledQRChangesNothing(t *testing.T) {
	trigger := NewThrottledQRTrigger(&fakeTrigger{}, infrastructure.NewRequestLimiter(1, 1))
	p := NewBotPoller(testUser, staticSource{conn: botRow(entities.BotStatusClose)}, trigger, time.Hour, zap.NewNop())
	ctx := context.Background()

	view, err := p.GenerateQR(ctx)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingScan, view.State)

	require.NoError(t, p.Poll(ctx))
	before := p.View()
	require.Equal(t, StateDisconnected, before.State)

	view, err = p.GenerateQR(ctx)
	require.ErrorIs(t, err, entities.ErrRateLimited)
	require.Equal(t, before, view)
}

func TestBotPoller_QRBeatsInFlightPoll(t *testing.T) {
	src := newGatedSource(1)
	p := NewBotPoller(testUser, src, &fakeTrigger{}, time.Hour, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- p.Poll(context.Background()) }()
	<-src.started

	_, err := p.GenerateQR(context.Background())
	require.NoError(t, err)

	src.gates[0] <- fetchResult{conn: botRow(entities.BotStatusClose)}
	require.NoError(t, <-done)
	require.Equal(t, StateAwaitingScan, p.View().State)
}

func TestBotPoller_RunAndSubscribe(t *testing.T) {
	p := NewBotPoller(testUser, staticSource{conn: botRow(entities.BotStatusOpen)}, &fakeTrigger{}, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views := p.Subscribe(ctx)
	stopped := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(stopped)
	}()

	var last PanelView
	for i := 0; i < 3; i++ {
		select {
		case last = <-views:
		case <-time.After(2 * time.Second):
			t.Fatal("no view delivered")
		}
	}
	require.Equal(t, StateConnected, last.State)
	require.GreaterOrEqual(t, last.Seq, uint64(3))

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
