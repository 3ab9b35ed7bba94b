package interfaces

import (
	"context"

	"backoffice/internal/entities"
)

// ClientRepository is table access for clients. Update takes wire column names.
type ClientRepository interface {
	List(ctx context.Context, company string, p entities.Pagination) ([]entities.Client, int, error)
	Count(ctx context.Context, company string) (int, error)
	GetByID(ctx context.Context, id int64) (*entities.Client, error)
	Insert(ctx context.Context, c entities.Client) (*entities.Client, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type ProductRepository interface {
	List(ctx context.Context, company string, p entities.Pagination) ([]entities.Product, int, error)
	Count(ctx context.Context, company string) (int, error)
	GetByID(ctx context.Context, id string) (*entities.Product, error)
	Insert(ctx context.Context, p entities.Product) (*entities.Product, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
}

type PlanRepository interface {
	GetByNetwork(ctx context.Context, network string) (*entities.PlanStatus, error)
}

type BotRepository interface {
	GetByToken(ctx context.Context, token string) (*entities.BotConnection, error)
}

// UserRepository lookups return nil, nil when no row matches.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*entities.UserRecord, error)
	GetByID(ctx context.Context, id string) (*entities.UserRecord, error)
}

// BlobStore holds product images.
type BlobStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) error
	Remove(ctx context.Context, paths ...string) error
	PublicURL(path string) string
	ObjectPath(publicURL string) string
}

// SessionStore holds the logged-in profile per user. Last write wins.
type SessionStore interface {
	Save(ctx context.Context, profile entities.AuthUser) error
	Load(ctx context.Context, userID string) (*entities.AuthUser, error)
	Clear(ctx context.Context, userID string) error
	Subscribe(ctx context.Context) <-chan entities.SessionEvent
}

// BotStatusSource reports the connection row of a user's bot, nil when there is none.
type BotStatusSource interface {
	FetchStatus(ctx context.Context, user entities.AuthUser) (*entities.BotConnection, error)
}

// QRTrigger asks the bot side for a fresh pairing code.
type QRTrigger interface {
	RequestQR(ctx context.Context, user entities.AuthUser) error
}

// QRNotifier is the outbound webhook used by QRTrigger in webhook mode.
type QRNotifier interface {
	Notify(ctx context.Context, user entities.AuthUser) error
}
