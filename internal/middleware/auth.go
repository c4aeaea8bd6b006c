package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/inkwell/internal/auth"
	"github.com/2beens/inkwell/internal/telemetry/tracing"
	"github.com/2beens/inkwell/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type AuthMiddlewareHandler struct {
	loginChecker        auth.Checker
	publicPaths         map[string]bool
	publicPathsPrefixes []string
	publicGetPrefixes   []string
	privateGetPrefixes  []string
}

func NewAuthMiddlewareHandler(loginChecker auth.Checker) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		publicPaths: map[string]bool{
			"/":                  true,
			"/version":           true,
			"/api/health":        true,
			"/api/auth/register": true,
			"/api/auth/login":    true,
		},
		publicPathsPrefixes: []string{
			// served files are addressed by unguessable generated names
			"/uploads/",
		},
		// reads are public, writes are not
		publicGetPrefixes: []string{
			"/api/posts",
			"/api/comments",
			"/api/tags",
			"/api/categories",
			"/api/users/",
		},
		// the "who am I" surface is the exception among GETs
		privateGetPrefixes: []string{
			"/api/users/me",
		},
	}
}

func (h *AuthMiddlewareHandler) pathIsPublic(method, path string) bool {
	if h.publicPaths[path] {
		return true
	}
	for _, prefix := range h.publicPathsPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	if method != http.MethodGet {
		return false
	}
	for _, prefix := range h.privateGetPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	for _, prefix := range h.publicGetPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.pathIsPublic(r.Method, r.URL.Path) {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			token := auth.TokenFromRequest(r)
			if token == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			userID, err := h.loginChecker.UserID(ctx, token)
			if err != nil {
				if !errors.Is(err, auth.ErrNotLoggedIn) {
					log.Errorf("[failed login check] => %s: %s", r.URL.Path, err)
					span.RecordError(err)
				} else {
					log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				}
				pkg.WriteJSONError(w, "not logged in", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "not-logged")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.SetUserIDToContext(ctx, userID)))
		})
	}
}
