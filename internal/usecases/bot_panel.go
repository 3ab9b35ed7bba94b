package usecases

import (
	"context"
	"sync"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/interfaces"

	"go.uber.org/zap"
)

// BotPanels shares one poller per user between all open panels of that user.
// A poller runs while at least one panel holds it.
type BotPanels struct {
	source   interfaces.BotStatusSource
	trigger  interfaces.QRTrigger
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	panels map[string]*panel
}

type panel struct {
	poller *BotPoller
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBotPanels(source interfaces.BotStatusSource, trigger interfaces.QRTrigger, interval time.Duration, logger *zap.Logger) *BotPanels {
	return &BotPanels{
		source:   source,
		trigger:  trigger,
		interval: interval,
		logger:   logger.With(zap.String("component", "bot_panels")),
		panels:   make(map[string]*panel),
	}
}

// Acquire returns the running poller of user, starting one if needed. The
// release func must be called exactly once.
func (b *BotPanels) Acquire(user entities.AuthUser) (*BotPoller, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pn, ok := b.panels[user.ID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		pn = &panel{
			poller: NewBotPoller(user, b.source, b.trigger, b.interval, b.logger),
			cancel: cancel,
			done:   make(chan struct{}),
		}
		b.panels[user.ID] = pn
		go func() {
			defer close(pn.done)
			pn.poller.Run(ctx)
		}()
		b.logger.Debug("poller started", zap.String("user_id", user.ID))
	}
	pn.refs++

	var once sync.Once
	return pn.poller, func() {
		once.Do(func() { b.release(user.ID, pn) })
	}
}

func (b *BotPanels) release(userID string, pn *panel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pn.refs--
	if pn.refs > 0 {
		return
	}
	pn.cancel()
	if b.panels[userID] == pn {
		delete(b.panels, userID)
	}
	b.logger.Debug("poller stopped", zap.String("user_id", userID))
}

// Status fetches once without a running poller.
func (b *BotPanels) Status(ctx context.Context, user entities.AuthUser) (PanelView, error) {
	conn, err := b.source.FetchStatus(ctx, user)
	if err != nil {
		return PanelView{}, err
	}
	return BuildView(conn, b.logger), nil
}

// GenerateQR goes through the user's poller so open panels see the switch
// to AwaitingScan immediately.
func (b *BotPanels) GenerateQR(ctx context.Context, user entities.AuthUser) (PanelView, error) {
	poller, release := b.Acquire(user)
	defer release()
	return poller.GenerateQR(ctx)
}

// Close stops every poller and waits for them to exit.
func (b *BotPanels) Close() {
	b.mu.Lock()
	panels := b.panels
	b.panels = make(map[string]*panel)
	b.mu.Unlock()
	for _, pn := range panels {
		pn.cancel()
		<-pn.done
	}
}
