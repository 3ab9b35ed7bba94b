package usecases

import (
	"context"
	"fmt"
	"time"

	"backoffice/internal/entities"
	"backoffice/internal/infrastructure"
	"backoffice/internal/interfaces"

	"go.uber.org/zap"
)

// BotService reads bot connection rows and triggers QR generation through the
// automation webhook.
type BotService struct {
	users    interfaces.UserRepository
	bots     interfaces.BotRepository
	notifier interfaces.QRNotifier
	logger   *zap.Logger
}

func NewBotService(users interfaces.UserRepository, bots interfaces.BotRepository, notifier interfaces.QRNotifier, logger *zap.Logger) *BotService {
	return &BotService{
		users:    users,
		bots:     bots,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "bot_service")),
	}
}

// Status resolves the bot token of userID (users.instancia, else the id) and
// returns its connection row. Nil when the bot has no row yet.
func (s *BotService) Status(ctx context.Context, userID string) (*entities.BotConnection, error) {
	if userID == "" {
		return nil, entities.NewValidationError("user_id", "user id is required")
	}
	user, err := s.resolve(ctx, entities.AuthUser{ID: userID})
	if err != nil {
		return nil, err
	}
	return s.byToken(ctx, user.BotToken())
}

// resolve fills the instance token from the users table when the profile
// does not carry one. Status polling and QR requests both go through it so
// they always address the same bot row.
func (s *BotService) resolve(ctx context.Context, user entities.AuthUser) (entities.AuthUser, error) {
	if user.Instance != "" {
		return user, nil
	}
	stored, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		s.logger.Error("user lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		return user, fmt.Errorf("resolve bot token: %w", err)
	}
	if stored != nil {
		user.Instance = stored.Instance
	}
	return user, nil
}

func (s *BotService) byToken(ctx context.Context, token string) (*entities.BotConnection, error) {
	conn, err := s.bots.GetByToken(ctx, token)
	if err != nil {
		s.logger.Error("bot lookup failed", zap.String("token", token), zap.Error(err))
		return nil, fmt.Errorf("get bot: %w", err)
	}
	return conn, nil
}

// FetchStatus uses the instance carried by the session profile when present.
func (s *BotService) FetchStatus(ctx context.Context, user entities.AuthUser) (*entities.BotConnection, error) {
	if user.ID == "" && user.Instance == "" {
		return nil, entities.NewValidationError("user_id", "user id is required")
	}
	user, err := s.resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.byToken(ctx, user.BotToken())
}

// RequestQR asks the automation host for a QR code on the instance the
// status poller watches.
func (s *BotService) RequestQR(ctx context.Context, user entities.AuthUser) error {
	user, err := s.resolve(ctx, user)
	if err != nil {
		return fmt.Errorf("generate qr code: %w", err)
	}
	if err := s.notifier.Notify(ctx, user); err != nil {
		s.logger.Error("qr request failed", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("generate qr code: %w", err)
	}
	s.logger.Info("qr requested", zap.String("user_id", user.ID), zap.String("instance", user.BotToken()))
	return nil
}

// ThrottledQRTrigger limits QR requests per user before they reach the bot side.
type ThrottledQRTrigger struct {
	next    interfaces.QRTrigger
	limiter *infrastructure.RequestLimiter
}

func NewThrottledQRTrigger(next interfaces.QRTrigger, limiter *infrastructure.RequestLimiter) *ThrottledQRTrigger {
	return &ThrottledQRTrigger{next: next, limiter: limiter}
}

func (t *ThrottledQRTrigger) RequestQR(ctx context.Context, user entities.AuthUser) error {
	if !t.limiter.Allow(user.ID) {
		wait := t.limiter.WaitTime(user.ID).Round(time.Second)
		return fmt.Errorf("qr code requested again too soon, retry in %s: %w", wait, entities.ErrRateLimited)
	}
	return t.next.RequestQR(ctx, user)
}
