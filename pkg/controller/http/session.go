package http

import (
	"context"
	"crypto/sha256"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"golang.org/x/crypto/hkdf"
)

const (
	sessionName = "tidepool_session"
	stateName   = "tidepool_oauth_state"

	sessionMaxAge = 60 * 60 * 12
	stateMaxAge   = 10 * 60

	keyLogin     = "login"
	keyName      = "name"
	keyAvatarURL = "avatar_url"
	keyState     = "state"

	minSessionSecretLength = 32
)

// sessionStore keeps the signed-in user and the pending OAuth state in
// signed and encrypted cookies. No GitHub token is stored.
type sessionStore struct {
	store *sessions.CookieStore
}

func newSessionStore(secret []byte, secure bool) (*sessionStore, error) {
	if len(secret) < minSessionSecretLength {
		return nil, goerr.New("session secret must be at least 32 bytes",
			goerr.T(types.ErrTagMisconfigured),
			goerr.V("length", len(secret)),
		)
	}

	hashKey, err := deriveKey(secret, "tidepool session hash")
	if err != nil {
		return nil, err
	}
	blockKey, err := deriveKey(secret, "tidepool session block")
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   sessionMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}

	return &sessionStore{store: store}, nil
}

func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, goerr.Wrap(err, "failed to derive session key")
	}
	return key, nil
}

// User returns the signed-in user, or nil when there is no valid session
func (s *sessionStore) User(r *http.Request) *model.User {
	// A cookie that fails to decode yields a fresh, empty session
	sess, _ := s.store.Get(r, sessionName)
	login, _ := sess.Values[keyLogin].(string)
	if login == "" {
		return nil
	}

	name, _ := sess.Values[keyName].(string)
	avatarURL, _ := sess.Values[keyAvatarURL].(string)
	return &model.User{
		Login:     types.GitHubLogin(login),
		Name:      name,
		AvatarURL: avatarURL,
	}
}

// SaveUser starts a session for user
func (s *sessionStore) SaveUser(w http.ResponseWriter, r *http.Request, user *model.User) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values[keyLogin] = user.Login.String()
	sess.Values[keyName] = user.Name
	sess.Values[keyAvatarURL] = user.AvatarURL
	if err := sess.Save(r, w); err != nil {
		return goerr.Wrap(err, "failed to save session")
	}
	return nil
}

// Clear ends the session
func (s *sessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return goerr.Wrap(err, "failed to clear session")
	}
	return nil
}

// SaveState binds an OAuth state to the browser until the callback
func (s *sessionStore) SaveState(w http.ResponseWriter, r *http.Request, state string) error {
	sess, _ := s.store.Get(r, stateName)
	sess.Values[keyState] = state
	sess.Options.MaxAge = stateMaxAge
	sess.Options.Path = "/auth"
	if err := sess.Save(r, w); err != nil {
		return goerr.Wrap(err, "failed to save OAuth state")
	}
	return nil
}

// PopState returns the bound OAuth state and removes it, so a state is
// accepted at most once
func (s *sessionStore) PopState(w http.ResponseWriter, r *http.Request) string {
	sess, _ := s.store.Get(r, stateName)
	state, _ := sess.Values[keyState].(string)

	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	sess.Options.Path = "/auth"
	_ = sess.Save(r, w)

	return state
}

type ctxUserKey struct{}

func withUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, user)
}

// userFrom returns the user set by the admin guard
func userFrom(ctx context.Context) *model.User {
	user, _ := ctx.Value(ctxUserKey{}).(*model.User)
	return user
}
