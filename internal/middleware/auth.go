package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/yarko/wwwhisper/internal/authz"
)

type contextKey string

const userKey contextKey = "user"

// Identity extracts the verified user identity from the trusted
// header and stores it in the request context. Authentication happens
// upstream; an empty header means an anonymous request.
func Identity(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := r.Header.Get(header); user != "" {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user identifier, or ""
// for anonymous requests.
func UserFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// AccessControl enforces the authorization decision for every request
// path. unprotectedAllowed decides what happens on paths no location
// governs.
func AccessControl(authorizer *authz.Authorizer, unprotectedAllowed bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			decision := authorizer.CanAccess(r.URL.Path, user)

			switch decision {
			case authz.DecisionAllowed:
				next.ServeHTTP(w, r)
			case authz.DecisionUnprotected:
				if unprotectedAllowed {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
			default:
				logrus.WithFields(logrus.Fields{
					"method":   r.Method,
					"path":     r.URL.Path,
					"user":     user,
					"decision": decision.String(),
				}).Debug("Access denied")

				if user == "" {
					http.Error(w, "Authentication required", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Forbidden", http.StatusForbidden)
			}
		})
	}
}

// AdminAuth protects administrative endpoints with a bearer token
// checked against a bcrypt hash. An empty hash disables the check.
func AdminAuth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				logrus.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Warn("Admin authentication failed")

				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
