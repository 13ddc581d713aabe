package usecase

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

const (
	// StateTTL bounds the time between login redirect and callback
	StateTTL = 10 * time.Minute

	stateIssuer = types.ServiceName

	minStateKeyLength = 32
)

type authUseCase struct {
	idp      interfaces.IdentityProvider
	allowed  map[string]struct{}
	stateKey []byte
}

// NewAuth creates a new instance of AuthUseCase. Only logins in allowedUsers
// may edit; an empty list admits nobody.
func NewAuth(idp interfaces.IdentityProvider, allowedUsers []string, stateKey []byte) (*authUseCase, error) {
	if idp == nil {
		return nil, goerr.New("identity provider is required", goerr.T(types.ErrTagMisconfigured))
	}
	if len(stateKey) < minStateKeyLength {
		return nil, goerr.New("state signing key is too short",
			goerr.T(types.ErrTagMisconfigured),
			goerr.V("min_length", minStateKeyLength),
		)
	}

	allowed := make(map[string]struct{}, len(allowedUsers))
	for _, login := range allowedUsers {
		login = strings.ToLower(strings.TrimSpace(login))
		if login != "" {
			allowed[login] = struct{}{}
		}
	}

	return &authUseCase{
		idp:      idp,
		allowed:  allowed,
		stateKey: stateKey,
	}, nil
}

// LoginURL issues a signed one-time state and returns the authorization URL
// carrying it. The caller binds the state to the browser.
func (uc *authUseCase) LoginURL(ctx context.Context) (string, string, error) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(stateIssuer).
		IssuedAt(now).
		Expiration(now.Add(StateTTL)).
		Build()
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to build state token")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, uc.stateKey))
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to sign state token")
	}

	state := string(signed)
	return uc.idp.AuthCodeURL(state), state, nil
}

// Callback verifies state against the value bound to the browser, exchanges
// code for an identity and checks it against the allow-list.
func (uc *authUseCase) Callback(ctx context.Context, code, state, expectedState string) (*model.User, error) {
	if code == "" || state == "" {
		return nil, goerr.New("Missing code or state", goerr.T(types.ErrTagBadRequest))
	}
	if expectedState == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, goerr.New("Invalid OAuth state", goerr.T(types.ErrTagUnauthorized))
	}
	if err := uc.verifyState(state); err != nil {
		return nil, err
	}

	user, err := uc.idp.Exchange(ctx, code)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange authorization code", goerr.T(types.ErrTagUnauthorized))
	}

	if err := uc.Authorize(ctx, user); err != nil {
		return nil, err
	}

	ctxlog.From(ctx).Info("User signed in", "login", user.Login)
	return user, nil
}

// Authorize checks that user is signed in and on the allow-list
func (uc *authUseCase) Authorize(ctx context.Context, user *model.User) error {
	if user == nil || user.Login == "" {
		return goerr.New("Missing GitHub session", goerr.T(types.ErrTagUnauthorized))
	}

	if _, ok := uc.allowed[strings.ToLower(user.Login.String())]; !ok {
		ctxlog.From(ctx).Warn("Rejected user not in allow-list", "login", user.Login)
		return goerr.New("User not allowed",
			goerr.T(types.ErrTagForbidden),
			goerr.V("login", user.Login),
		)
	}

	return nil
}

func (uc *authUseCase) verifyState(state string) error {
	token, err := jwt.Parse([]byte(state),
		jwt.WithKey(jwa.HS256, uc.stateKey),
		jwt.WithValidate(true),
	)
	if err != nil {
		return goerr.Wrap(err, "Invalid OAuth state", goerr.T(types.ErrTagUnauthorized))
	}

	if err := jwt.Validate(token, jwt.WithIssuer(stateIssuer)); err != nil {
		return goerr.Wrap(err, "Invalid OAuth state", goerr.T(types.ErrTagUnauthorized))
	}

	return nil
}
