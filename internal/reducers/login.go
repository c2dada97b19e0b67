package reducers

import (
	"time"

	"github.com/jask/adminstate/internal/store"
)

const LoginKey = "login"

type LoginStatus string

const (
	LoggedOut    LoginStatus = "logged-out"
	LoginPending LoginStatus = "pending"
	LoggedIn     LoginStatus = "logged-in"
	LoginError   LoginStatus = "error"
)

type LoginState struct {
	Status    LoginStatus `json:"status"`
	User      string      `json:"user,omitempty"`
	Session   string      `json:"session,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt,omitempty"`
	Err       string      `json:"error,omitempty"`
}

// ToSerializable hides the session token from inspectors.
func (s LoginState) ToSerializable() any {
	out := map[string]any{"status": string(s.Status)}
	if s.User != "" {
		out["user"] = s.User
	}
	if s.Session != "" {
		out["session"] = redacted
	}
	if !s.ExpiresAt.IsZero() {
		out["expiresAt"] = s.ExpiresAt
	}
	if s.Err != "" {
		out["error"] = s.Err
	}
	return out
}

// Authenticated reports whether a live session exists at now.
func (s LoginState) Authenticated(now time.Time) bool {
	return s.Status == LoggedIn && (s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt))
}

const redacted = "<redacted>"

type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// ToSerializable hides the password from inspectors.
func (r LoginRequest) ToSerializable() any {
	return map[string]any{"type": r.Type(), "user": r.User, "password": redacted}
}

type LoginSucceeded struct {
	User      string    `json:"user"`
	Session   string    `json:"session"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (a LoginSucceeded) ToSerializable() any {
	return map[string]any{"type": a.Type(), "user": a.User, "session": redacted, "expiresAt": a.ExpiresAt}
}

type LoginFailed struct {
	User string `json:"user"`
	Err  string `json:"error"`
}

type Logout struct{}

func (LoginRequest) Type() string   { return "login/REQUEST" }
func (LoginSucceeded) Type() string { return "login/SUCCESS" }
func (LoginFailed) Type() string    { return "login/FAILURE" }
func (Logout) Type() string         { return "login/LOGOUT" }

func ReduceLogin(st LoginState, a store.Action) LoginState {
	switch a := a.(type) {
	case LoginRequest:
		return LoginState{Status: LoginPending, User: a.User}
	case LoginSucceeded:
		return LoginState{Status: LoggedIn, User: a.User, Session: a.Session, ExpiresAt: a.ExpiresAt}
	case LoginFailed:
		return LoginState{Status: LoginError, User: a.User, Err: a.Err}
	case Logout:
		if st.Status == LoggedOut {
			return st
		}
		return LoginState{Status: LoggedOut}
	}
	return st
}

func LoginSlice() store.Slice {
	return store.Define(LoginKey, LoginState{Status: LoggedOut}, ReduceLogin)
}
