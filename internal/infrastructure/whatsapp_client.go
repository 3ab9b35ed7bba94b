package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"backoffice/internal/entities"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppClient pairs one back-office user with a WhatsApp device.
type WhatsAppClient struct {
	Client *whatsmeow.Client
	UserID string

	logger  *zap.Logger
	qrLock  sync.RWMutex
	qrCode  string
	pairing bool
}

func NewWhatsAppClient(ctx context.Context, dbPath, userID string, logger *zap.Logger) (*WhatsAppClient, error) {
	logger = logger.With(zap.String("component", "whatsapp_client"), zap.String("user_id", userID))

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", newWALogger(logger, "Database"))
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	return &WhatsAppClient{
		Client: whatsmeow.NewClient(deviceStore, newWALogger(logger, "Client")),
		UserID: userID,
		logger: logger,
	}, nil
}

// Connect resumes a stored session or starts pairing when there is none.
func (w *WhatsAppClient) Connect() error {
	if w.Client.Store.ID != nil {
		if w.Client.IsConnected() {
			return nil
		}
		if err := w.Client.Connect(); err != nil {
			return err
		}
		w.logger.Info("whatsapp connected with existing session")
		return nil
	}
	return w.startPairing()
}

// RequestQR forces a fresh pairing code. A linked device is logged out first.
func (w *WhatsAppClient) RequestQR(ctx context.Context) error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Logout(ctx); err != nil {
			w.logger.Warn("logout before pairing failed", zap.Error(err))
		}
	}
	w.Client.Disconnect()
	return w.startPairing()
}

func (w *WhatsAppClient) startPairing() error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.pairing = true
	w.qrLock.Unlock()

	// The QR channel outlives the request that asked for it.
	qrChan, err := w.Client.GetQRChannel(context.Background())
	if err != nil {
		w.setPairing(false)
		return fmt.Errorf("open qr channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		w.setPairing(false)
		return err
	}

	go func() {
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				w.qrLock.Lock()
				w.qrCode = evt.Code
				w.qrLock.Unlock()
				w.logger.Debug("new pairing code")
			default:
				w.logger.Info("pairing event", zap.String("event", evt.Event))
				w.qrLock.Lock()
				w.qrCode = ""
				w.pairing = false
				w.qrLock.Unlock()
			}
		}
	}()
	return nil
}

func (w *WhatsAppClient) setPairing(v bool) {
	w.qrLock.Lock()
	w.pairing = v
	w.qrLock.Unlock()
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

// Snapshot reports the device the same way the bots table does.
func (w *WhatsAppClient) Snapshot() *entities.BotConnection {
	conn := &entities.BotConnection{Token: w.UserID}

	w.qrLock.RLock()
	qr, pairing := w.qrCode, w.pairing
	w.qrLock.RUnlock()

	switch {
	case w.Client.IsConnected() && w.Client.Store.ID != nil:
		conn.Status = entities.StringPtr(entities.BotStatusOpen)
		conn.PhoneNumber = entities.StringPtr(w.Client.Store.ID.User)
		conn.Name = entities.StringPtr(w.Client.Store.PushName)
	case pairing:
		conn.Status = entities.StringPtr(entities.BotStatusAwaitingQR)
		conn.QRCode = entities.StringPtr(qr)
	default:
		conn.Status = entities.StringPtr(entities.BotStatusClose)
	}
	return conn
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

// waLogger routes whatsmeow logs into zap.
type waLogger struct {
	s *zap.SugaredLogger
}

func newWALogger(logger *zap.Logger, module string) waLog.Logger {
	return &waLogger{s: logger.Sugar().With("module", module)}
}

func (l *waLogger) Warnf(msg string, args ...interface{})  { l.s.Warnf(msg, args...) }
func (l *waLogger) Errorf(msg string, args ...interface{}) { l.s.Errorf(msg, args...) }
func (l *waLogger) Infof(msg string, args ...interface{})  { l.s.Infof(msg, args...) }
func (l *waLogger) Debugf(msg string, args ...interface{}) { l.s.Debugf(msg, args...) }
func (l *waLogger) Sub(module string) waLog.Logger {
	return &waLogger{s: l.s.With("module", module)}
}
