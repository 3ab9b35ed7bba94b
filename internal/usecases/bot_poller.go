package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/infrastructure"
	"backoffice/internal/interfaces"

	"go.uber.org/zap"
)

const DefaultPollInterval = 5 * time.Second

// PanelState is what the connection panel shows.
type PanelState string

const (
	StateConnected    PanelState = "connected"
	StateDisconnected PanelState = "disconnected"
	StateAwaitingScan PanelState = "awaiting_scan"
	StateUnknown      PanelState = "unknown"
)

// DeriveState maps a raw status string. Anything unrecognised, absent
// included, is Unknown.
func DeriveState(status string) PanelState {
	switch status {
	case entities.BotStatusOpen:
		return StateConnected
	case entities.BotStatusClose:
		return StateDisconnected
	case entities.BotStatusAwaitingQR:
		return StateAwaitingScan
	}
	return StateUnknown
}

type PanelView struct {
	State     PanelState `json:"state"`
	Status    string     `json:"status"`
	QRCode    string     `json:"qrcode,omitempty"` // data URI
	Phone     string     `json:"numero,omitempty"`
	Name      string     `json:"nome,omitempty"`
	Seq       uint64     `json:"seq"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BuildView renders a connection row. Nil means the bot has no row.
func BuildView(conn *entities.BotConnection, logger *zap.Logger) PanelView {
	status := conn.StatusValue()
	view := PanelView{State: DeriveState(status), Status: status, UpdatedAt: time.Now()}
	if conn == nil {
		return view
	}
	view.Phone = entities.StringValue(conn.PhoneNumber)
	view.Name = entities.StringValue(conn.Name)
	if raw := entities.StringValue(conn.QRCode); raw != "" {
		qr, err := infrastructure.QRCodeDataURI(raw)
		if err != nil {
			logger.Warn("qr code not renderable", zap.Error(err))
		} else {
			view.QRCode = qr
		}
	}
	return view
}

// BotPoller refreshes the connection status of one user's bot at a fixed
// interval. Every fetch takes a sequence number and a result is applied only
// when it is newer than the last applied one, so a slow response can never
// overwrite a fresher view.
type BotPoller struct {
	user     entities.AuthUser
	source   interfaces.BotStatusSource
	trigger  interfaces.QRTrigger
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	seq     uint64
	applied uint64
	view    PanelView
	subs    map[int]chan PanelView
	nextSub int
}

func NewBotPoller(user entities.AuthUser, source interfaces.BotStatusSource, trigger interfaces.QRTrigger, interval time.Duration, logger *zap.Logger) *BotPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &BotPoller{
		user:     user,
		source:   source,
		trigger:  trigger,
		interval: interval,
		logger:   logger.With(zap.String("component", "bot_poller"), zap.String("user_id", user.ID)),
		view:     PanelView{State: StateUnknown},
		subs:     make(map[int]chan PanelView),
	}
}

// Run polls immediately and then on every tick until ctx is done. Ticks do
// not wait for slow fetches.
func (p *BotPoller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	poll := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Poll(ctx)
		}()
	}

	poll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// Poll fetches once. A failed fetch leaves the current view in place.
func (p *BotPoller) Poll(ctx context.Context) error {
	seq := p.nextSeq()
	conn, err := p.source.FetchStatus(ctx, p.user)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("status poll failed", zap.Uint64("seq", seq), zap.Error(err))
		}
		return err
	}
	p.apply(seq, BuildView(conn, p.logger))
	return nil
}

// GenerateQR asks the bot side for a new pairing code. Once the request was
// issued the panel switches to AwaitingScan and drops the old QR image
// whatever the answer; the next poll confirms the real state. A throttled
// request changes nothing.
func (p *BotPoller) GenerateQR(ctx context.Context) (PanelView, error) {
	err := p.trigger.RequestQR(ctx, p.user)
	if errors.Is(err, entities.ErrRateLimited) {
		return p.View(), err
	}
	seq := p.nextSeq()
	p.apply(seq, PanelView{
		State:     StateAwaitingScan,
		Status:    entities.BotStatusAwaitingQR,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		p.logger.Warn("qr request failed, waiting for next poll", zap.Error(err))
	}
	return p.View(), err
}

func (p *BotPoller) View() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// Subscribe delivers every applied view until ctx is done. A slow reader
// only sees the latest one.
func (p *BotPoller) Subscribe(ctx context.Context) <-chan PanelView {
	ch := make(chan PanelView, 1)
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subs, id)
		close(ch)
		p.mu.Unlock()
	}()
	return ch
}

func (p *BotPoller) nextSeq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return p.seq
}

// apply reports whether the view was newer than the last applied one.
func (p *BotPoller) apply(seq uint64, view PanelView) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq <= p.applied {
		p.logger.Debug("dropping stale status", zap.Uint64("seq", seq), zap.Uint64("applied", p.applied))
		return false
	}
	p.applied = seq
	view.Seq = seq
	p.view = view
	for _, ch := range p.subs {
		select {
		case <-ch:
		default:
		}
		ch <- view
	}
	return true
}
