package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"backoffice/internal/entities"

	"go.uber.org/zap"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// WhatsAppManager keeps one paired device per back-office user. It serves the
// bot status and QR requests when the service runs in local pairing mode.
type WhatsAppManager struct {
	clients map[string]*WhatsAppClient
	mu      sync.Mutex
	baseDir string
	logger  *zap.Logger
}

func NewWhatsAppManager(baseDir string, logger *zap.Logger) (*WhatsAppManager, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create devices directory: %w", err)
	}
	return &WhatsAppManager{
		clients: make(map[string]*WhatsAppClient),
		baseDir: baseDir,
		logger:  logger.With(zap.String("component", "whatsapp_manager")),
	}, nil
}

func (m *WhatsAppManager) GetOrCreateClient(ctx context.Context, userID string) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[userID]; exists {
		return client, nil
	}
	dbPath := filepath.Join(m.baseDir, "user_"+unsafeFileChars.ReplaceAllString(userID, "_")+".db")
	client, err := NewWhatsAppClient(ctx, dbPath, userID, m.logger)
	if err != nil {
		return nil, fmt.Errorf("create whatsapp client for user %s: %w", userID, err)
	}
	m.clients[userID] = client
	return client, nil
}

// FetchStatus resumes a stored device on first use and reports its state.
func (m *WhatsAppManager) FetchStatus(ctx context.Context, user entities.AuthUser) (*entities.BotConnection, error) {
	client, err := m.GetOrCreateClient(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if client.IsLoggedIn() && !client.Client.IsConnected() {
		if err := client.Connect(); err != nil {
			m.logger.Warn("reconnect failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	return client.Snapshot(), nil
}

func (m *WhatsAppManager) RequestQR(ctx context.Context, user entities.AuthUser) error {
	client, err := m.GetOrCreateClient(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := client.RequestQR(ctx); err != nil {
		return fmt.Errorf("start pairing for user %s: %w", user.ID, err)
	}
	m.logger.Info("pairing started", zap.String("user_id", user.ID))
	return nil
}

// DisconnectAll disconnects every device; used on shutdown.
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[string]*WhatsAppClient)
}
