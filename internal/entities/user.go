package entities

import "time"

// Permissions mirrors the "permissoes" JSON column of the users table.
type Permissions struct {
	Dashboard   bool `json:"dashboard"`
	Visitors    bool `json:"visitantes"`
	History     bool `json:"historico"`
	Messages    bool `json:"mensagens"`
	Events      bool `json:"eventos"`
	Training    bool `json:"treinamento"`
	Connection  bool `json:"conexao"`
	ManageUsers bool `json:"users"`
}

// Allows reports whether the named flag is set. Unknown names are denied.
func (p Permissions) Allows(name string) bool {
	switch name {
	case "dashboard":
		return p.Dashboard
	case "visitantes":
		return p.Visitors
	case "historico":
		return p.History
	case "mensagens":
		return p.Messages
	case "eventos":
		return p.Events
	case "treinamento":
		return p.Training
	case "conexao":
		return p.Connection
	case "users":
		return p.ManageUsers
	}
	return false
}

// AuthUser is the session profile of a logged-in operator.
type AuthUser struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"nome"`
	Company     string      `json:"empresa"` // Tenant key
	Level       string      `json:"nivel"`   // Role string
	Permissions Permissions `json:"permissoes"`
	Instance    string      `json:"instancia,omitempty"` // Bot instance token
}

// UserRecord is a users row including the stored password. Never serialize it to callers.
type UserRecord struct {
	AuthUser
	Password string `json:"senha"`
}

// BotToken returns the token used to look up the user's bot row.
func (u AuthUser) BotToken() string {
	if u.Instance != "" {
		return u.Instance
	}
	return u.ID
}

// SessionEvent is emitted whenever a session profile is saved or cleared.
// Profile is nil for a clear.
type SessionEvent struct {
	UserID  string    `json:"user_id"`
	Profile *AuthUser `json:"profile,omitempty"`
	At      time.Time `json:"at"`
}
