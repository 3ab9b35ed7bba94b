package infrastructure

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/entities"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// QRWebhookPayload is posted to the automation host to request a new pairing QR code.
type QRWebhookPayload struct {
	Action    string        `json:"action"`
	Timestamp string        `json:"timestamp"`
	User      QRWebhookUser `json:"user"`
	Bot       QRWebhookBot  `json:"bot"`
}

type QRWebhookUser struct {
	ID          string               `json:"id"`
	Email       string               `json:"email"`
	Name        string               `json:"name"`
	Level       string               `json:"level"`
	Company     string               `json:"company"`
	Permissions entities.Permissions `json:"permissions"`
}

type QRWebhookBot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Instance string `json:"instance"`
}

// NewQRWebhookPayload snapshots the requesting user and their bot instance.
// Instance is the bots.token the status poller reads.
func NewQRWebhookPayload(u entities.AuthUser, now time.Time) QRWebhookPayload {
	name := u.Name
	if name == "" {
		name = "Usuário"
	}
	return QRWebhookPayload{
		Action:    "generate_qrcode",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		User: QRWebhookUser{
			ID:          u.ID,
			Email:       u.Email,
			Name:        u.Name,
			Level:       u.Level,
			Company:     u.Company,
			Permissions: u.Permissions,
		},
		Bot: QRWebhookBot{
			ID:       u.ID,
			Name:     name,
			Instance: u.BotToken(),
		},
	}
}

// QRWebhook is a one-shot POST to the external automation; only the HTTP status matters.
type QRWebhook struct {
	http   *resty.Client
	url    string
	logger *zap.Logger
}

func NewQRWebhook(url string, timeout time.Duration, logger *zap.Logger) *QRWebhook {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(logger.Sugar()).
		SetHeader("Content-Type", "application/json")
	return &QRWebhook{
		http:   client,
		url:    url,
		logger: logger.With(zap.String("component", "qr_webhook")),
	}
}

func (w *QRWebhook) Send(ctx context.Context, payload QRWebhookPayload) error {
	resp, err := w.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(w.url)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("qr webhook: %w", entities.ErrTimeout)
		}
		w.logger.Error("qr webhook call failed", zap.String("user_id", payload.User.ID), zap.Error(err))
		return fmt.Errorf("qr webhook: %w", err)
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		apiErr := NewAPIError(resp.StatusCode(), resp.Body(), "failed to generate QR code")
		w.logger.Error("qr webhook rejected request",
			zap.String("user_id", payload.User.ID),
			zap.Int("status", resp.StatusCode()),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}
	w.logger.Info("qr webhook accepted request", zap.String("user_id", payload.User.ID))
	return nil
}

// Notify asks the automation host for a new QR code for user.
func (w *QRWebhook) Notify(ctx context.Context, user entities.AuthUser) error {
	return w.Send(ctx, NewQRWebhookPayload(user, time.Now()))
}
