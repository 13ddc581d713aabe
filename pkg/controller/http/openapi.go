package http

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

//go:embed openapi.yaml
var openAPISpec []byte

// requestValidator checks query and path parameters of /api requests
// against the embedded OpenAPI document. Bodies are checked by handlers.
type requestValidator struct {
	router routers.Router
}

func newRequestValidator() (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load OpenAPI document")
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, goerr.Wrap(err, "invalid OpenAPI document")
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build OpenAPI router")
	}

	return &requestValidator{router: router}, nil
}

// Middleware rejects requests violating the document with 400. Requests
// with no matching operation pass through to the router.
func (v *requestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				ExcludeRequestBody: true,
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeError(w, r, goerr.New(validationMessage(err),
				goerr.T(types.ErrTagBadRequest),
				goerr.V("detail", err.Error()),
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		if errors.Is(reqErr.Err, openapi3filter.ErrInvalidRequired) {
			return "Missing " + reqErr.Parameter.Name + " parameter"
		}
		return "Invalid " + reqErr.Parameter.Name + " parameter"
	}
	return "Invalid request"
}

func handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}
