package sagas

import (
	"context"
	"errors"

	"github.com/jask/adminstate/internal/effect"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/secrets"
	"github.com/jask/adminstate/internal/store"
)

// Login restores a saved session at start, authenticates LoginRequest and
// forgets the session on Logout.
func Login(d Deps) effect.Program {
	restore := effect.Func(func(ctx context.Context, rt effect.Runtime) error {
		if d.Sessions == nil {
			return nil
		}
		sess, err := d.Sessions.Load()
		if errors.Is(err, secrets.ErrNoSession) {
			return nil
		}
		if err != nil {
			rt.Logger().Warn("sagas: restore session", "error", err)
			return nil
		}
		if !sess.ExpiresAt.IsZero() && !d.now().Before(sess.ExpiresAt) {
			return d.Sessions.Clear()
		}
		return rt.Put(reducers.LoginSucceeded{User: sess.User, Session: sess.Token, ExpiresAt: sess.ExpiresAt})
	})

	login := effect.TakeLatest(func(ctx context.Context, rt effect.Runtime, a store.Action) error {
		req := a.(reducers.LoginRequest)
		token, expires, err := d.Auth.Login(ctx, req.User, req.Password)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return rt.Put(reducers.LoginFailed{User: req.User, Err: err.Error()})
		}
		if d.Sessions != nil {
			if err := d.Sessions.Save(secrets.Session{User: req.User, Token: token, ExpiresAt: expires}); err != nil {
				rt.Logger().Warn("sagas: save session", "error", err)
			}
		}
		return rt.Put(reducers.LoginSucceeded{User: req.User, Session: token, ExpiresAt: expires})
	}, reducers.LoginRequest{}.Type())

	logout := effect.Func(func(ctx context.Context, rt effect.Runtime) error {
		token := ""
		for {
			a, err := rt.Take(ctx, reducers.LoginSucceeded{}.Type(), reducers.Logout{}.Type())
			if err != nil {
				return nil
			}
			if ok, isLogin := a.(reducers.LoginSucceeded); isLogin {
				token = ok.Session
				continue
			}
			if d.Sessions != nil {
				if err := d.Sessions.Clear(); err != nil {
					rt.Logger().Warn("sagas: clear session", "error", err)
				}
			}
			if token != "" {
				if err := d.Auth.Logout(ctx, token); err != nil {
					rt.Logger().Warn("sagas: logout", "error", err)
				}
				token = ""
			}
		}
	})

	return effect.All(
		effect.Named("login/logout", logout),
		effect.Named("login/request", login),
		effect.Named("login/restore", restore),
	)
}
