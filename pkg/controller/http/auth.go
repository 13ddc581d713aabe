package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

type authHandler struct {
	authUC           interfaces.AuthUseCase
	sessions         *sessionStore
	adminRedirectURL string
}

// requireAdmin admits only signed-in users on the allow-list. It runs before
// any body is read.
func (h *authHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := h.sessions.User(r)
		if err := h.authUC.Authorize(r.Context(), user); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.authUC.LoginURL(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.sessions.SaveState(w, r, state); err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *authHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expected := h.sessions.PopState(w, r)

	if e := q.Get("error"); e != "" {
		writeError(w, r, goerr.New("GitHub authorization was denied",
			goerr.T(types.ErrTagUnauthorized),
			goerr.V("error", e),
		))
		return
	}

	user, err := h.authUC.Callback(r.Context(), q.Get("code"), q.Get("state"), expected)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.sessions.SaveUser(w, r, user); err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, h.adminRedirectURL, http.StatusFound)
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *authHandler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, userFrom(r.Context()))
}
