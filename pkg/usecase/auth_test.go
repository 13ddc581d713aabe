package usecase_test

import (
	"net/http"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"github.com/m-mizutani/tidepool/pkg/usecase"
)

var stateKey = []byte("0123456789abcdef0123456789abcdef")

// mockIdentityProvider is a mock implementation of IdentityProvider
type mockIdentityProvider struct {
	user     *model.User
	err      error
	codes    []string
	authBase string
}

func (m *mockIdentityProvider) AuthCodeURL(state string) string {
	return m.authBase + "?state=" + url.QueryEscape(state)
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (*model.User, error) {
	m.codes = append(m.codes, code)
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func newIDP(login string) *mockIdentityProvider {
	return &mockIdentityProvider{
		user:     &model.User{Login: types.GitHubLogin(login)},
		authBase: "https://github.example.com/login/oauth/authorize",
	}
}

func TestNewAuth(t *testing.T) {
	_, err := usecase.NewAuth(newIDP("octocat"), []string{"octocat"}, []byte("short"))
	gt.Error(t, err)
	gt.True(t, goerr.HasTag(err, types.ErrTagMisconfigured))

	_, err = usecase.NewAuth(nil, []string{"octocat"}, stateKey)
	gt.Error(t, err)

	_, err = usecase.NewAuth(newIDP("octocat"), nil, stateKey)
	gt.NoError(t, err)
}

func TestAuthUseCase_LoginAndCallback(t *testing.T) {
	idp := newIDP("octocat")
	uc, err := usecase.NewAuth(idp, []string{"OctoCat", "hubot"}, stateKey)
	gt.NoError(t, err)
	ctx := context.Background()

	loginURL, state, err := uc.LoginURL(ctx)
	gt.NoError(t, err)
	gt.Value(t, state).NotEqual("")
	gt.True(t, strings.HasPrefix(loginURL, idp.authBase))
	gt.True(t, strings.Contains(loginURL, url.QueryEscape(state)))

	user, err := uc.Callback(ctx, "code-1", state, state)
	gt.NoError(t, err)
	gt.Equal(t, user.Login, types.GitHubLogin("octocat"))
	gt.Equal(t, idp.codes, []string{"code-1"})

	// Each login issues a different state
	_, state2, err := uc.LoginURL(ctx)
	gt.NoError(t, err)
	gt.Value(t, state2).NotEqual(state)
}

func TestAuthUseCase_Callback_Rejected(t *testing.T) {
	ctx := context.Background()

	expired := func(t *testing.T) string {
		tok, err := jwt.NewBuilder().
			Issuer(types.ServiceName).
			IssuedAt(time.Now().Add(-time.Hour)).
			Expiration(time.Now().Add(-30 * time.Minute)).
			Build()
		gt.NoError(t, err)
		signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, stateKey))
		gt.NoError(t, err)
		return string(signed)
	}
	foreignIssuer := func(t *testing.T) string {
		tok, err := jwt.NewBuilder().
			Issuer("someone-else").
			Expiration(time.Now().Add(time.Minute)).
			Build()
		gt.NoError(t, err)
		signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, stateKey))
		gt.NoError(t, err)
		return string(signed)
	}
	otherKey := func(t *testing.T) string {
		tok, err := jwt.NewBuilder().
			Issuer(types.ServiceName).
			Expiration(time.Now().Add(time.Minute)).
			Build()
		gt.NoError(t, err)
		signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("ffffffffffffffffffffffffffffffff")))
		gt.NoError(t, err)
		return string(signed)
	}

	testCases := []struct {
		name     string
		state    func(t *testing.T, issued string) (state, expected string)
		login    string
		idpErr   error
		status   int
		exchange bool
	}{
		{
			name:   "missing state",
			state:  func(t *testing.T, issued string) (string, string) { return "", issued },
			status: http.StatusBadRequest,
		},
		{
			name:   "state not bound to browser",
			state:  func(t *testing.T, issued string) (string, string) { return issued, "" },
			status: http.StatusUnauthorized,
		},
		{
			name:  "state mismatch",
			state: func(t *testing.T, issued string) (string, string) {
				return issued, issued + "x"
			},
			status: http.StatusUnauthorized,
		},
		{
			name:  "expired state",
			state: func(t *testing.T, issued string) (string, string) {
				s := expired(t)
				return s, s
			},
			status: http.StatusUnauthorized,
		},
		{
			name:  "foreign issuer",
			state: func(t *testing.T, issued string) (string, string) {
				s := foreignIssuer(t)
				return s, s
			},
			status: http.StatusUnauthorized,
		},
		{
			name:  "signed with another key",
			state: func(t *testing.T, issued string) (string, string) {
				s := otherKey(t)
				return s, s
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "user not allowed",
			state:    func(t *testing.T, issued string) (string, string) { return issued, issued },
			login:    "mallory",
			status:   http.StatusForbidden,
			exchange: true,
		},
		{
			name:     "exchange failure",
			state:    func(t *testing.T, issued string) (string, string) { return issued, issued },
			idpErr:   errors.New("bad_verification_code"),
			status:   http.StatusUnauthorized,
			exchange: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			login := tc.login
			if login == "" {
				login = "octocat"
			}
			idp := newIDP(login)
			idp.err = tc.idpErr

			uc, err := usecase.NewAuth(idp, []string{"octocat"}, stateKey)
			gt.NoError(t, err)

			_, issued, err := uc.LoginURL(ctx)
			gt.NoError(t, err)

			state, expected := tc.state(t, issued)
			_, err = uc.Callback(ctx, "code", state, expected)
			gt.Error(t, err)
			gt.Equal(t, types.HTTPStatus(err), tc.status)
			gt.Equal(t, len(idp.codes) > 0, tc.exchange)
		})
	}
}

func TestAuthUseCase_Authorize(t *testing.T) {
	uc, err := usecase.NewAuth(newIDP("octocat"), []string{" Octocat ", ""}, stateKey)
	gt.NoError(t, err)
	ctx := context.Background()

	gt.NoError(t, uc.Authorize(ctx, &model.User{Login: "octocat"}))
	gt.NoError(t, uc.Authorize(ctx, &model.User{Login: "OCTOCAT"}))

	err = uc.Authorize(ctx, &model.User{Login: "hubot"})
	gt.True(t, goerr.HasTag(err, types.ErrTagForbidden))

	err = uc.Authorize(ctx, nil)
	gt.True(t, goerr.HasTag(err, types.ErrTagUnauthorized))

	t.Run("empty allow-list admits nobody", func(t *testing.T) {
		uc, err := usecase.NewAuth(newIDP("octocat"), nil, stateKey)
		gt.NoError(t, err)

		err = uc.Authorize(ctx, &model.User{Login: "octocat"})
		gt.True(t, goerr.HasTag(err, types.ErrTagForbidden))
	})
}
