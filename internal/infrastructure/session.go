package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"backoffice/internal/entities"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MemorySessionStore keeps profiles in process. Last write wins.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]entities.AuthUser
	subs     map[int]chan entities.SessionEvent
	nextSub  int
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]entities.AuthUser),
		subs:     make(map[int]chan entities.SessionEvent),
	}
}

func (s *MemorySessionStore) Save(_ context.Context, profile entities.AuthUser) error {
	if profile.ID == "" {
		return errors.New("session profile has no id")
	}
	s.mu.Lock()
	s.sessions[profile.ID] = profile
	s.mu.Unlock()
	p := profile
	s.publish(entities.SessionEvent{UserID: profile.ID, Profile: &p, At: time.Now()})
	return nil
}

// Load returns nil when no profile is stored for userID.
func (s *MemorySessionStore) Load(_ context.Context, userID string) (*entities.AuthUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (s *MemorySessionStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.sessions, userID)
	s.mu.Unlock()
	s.publish(entities.SessionEvent{UserID: userID, At: time.Now()})
	return nil
}

// Subscribe delivers events until ctx is done. Slow subscribers miss events.
func (s *MemorySessionStore) Subscribe(ctx context.Context) <-chan entities.SessionEvent {
	ch := make(chan entities.SessionEvent, 8)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

func (s *MemorySessionStore) publish(evt entities.SessionEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

const (
	sessionKeyPrefix = "session:user:"
	sessionChannel   = "session:events"
)

// RedisSessionStore shares profiles across processes and tabs through redis.
type RedisSessionStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSessionStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSessionStore {
	return &RedisSessionStore{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "session_store")),
	}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

func (s *RedisSessionStore) Save(ctx context.Context, profile entities.AuthUser) error {
	if profile.ID == "" {
		return errors.New("session profile has no id")
	}
	b, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(profile.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", profile.ID, err)
	}
	p := profile
	s.publish(ctx, entities.SessionEvent{UserID: profile.ID, Profile: &p, At: time.Now()})
	return nil
}

func (s *RedisSessionStore) Load(ctx context.Context, userID string) (*entities.AuthUser, error) {
	b, err := s.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", userID, err)
	}
	var profile entities.AuthUser
	if err := json.Unmarshal(b, &profile); err != nil {
		// A corrupt entry is treated as logged out.
		s.logger.Warn("dropping unreadable session", zap.String("user_id", userID), zap.Error(err))
		_ = s.rdb.Del(ctx, sessionKey(userID)).Err()
		return nil, nil
	}
	return &profile, nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", userID, err)
	}
	s.publish(ctx, entities.SessionEvent{UserID: userID, At: time.Now()})
	return nil
}

func (s *RedisSessionStore) Subscribe(ctx context.Context) <-chan entities.SessionEvent {
	out := make(chan entities.SessionEvent, 8)
	sub := s.rdb.Subscribe(ctx, sessionChannel)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is lost.
	if _, err := sub.Receive(ctx); err != nil {
		s.logger.Warn("session subscription not confirmed", zap.Error(err))
	}

	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt entities.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					s.logger.Warn("ignoring malformed session event", zap.Error(err))
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()
	return out
}

func (s *RedisSessionStore) publish(ctx context.Context, evt entities.SessionEvent) {
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, sessionChannel, b).Err(); err != nil {
		s.logger.Warn("publish session event failed", zap.String("user_id", evt.UserID), zap.Error(err))
	}
}
