package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/yarko/wwwhisper/internal/authz"
	"github.com/yarko/wwwhisper/internal/store"
)

const identityHeader = "X-Wwwhisper-User"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newAuthorizer(t *testing.T) (*authz.Authorizer, *authz.Users, *authz.Locations, *authz.Permissions) {
	t.Helper()
	s := store.NewMemory()
	users := authz.NewUsers(s)
	locations := authz.NewLocations(s)
	permissions := authz.NewPermissions(s)
	return authz.NewAuthorizer(locations, permissions), users, locations, permissions
}

func TestIdentity_SetsContextUser(t *testing.T) {
	var got string
	handler := Identity(identityHeader)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(identityHeader, "user-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "user-1" {
		t.Errorf("user from context = %q, want %q", got, "user-1")
	}
}

func TestIdentity_AnonymousWithoutHeader(t *testing.T) {
	var got string
	handler := Identity(identityHeader)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = UserFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if got != "" {
		t.Errorf("user from context = %q, want empty", got)
	}
}

func TestAccessControl_StatusCodes(t *testing.T) {
	authorizer, users, locations, permissions := newAuthorizer(t)

	pub, err := locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := locations.SetOpenAccess(pub.UUID, true); err != nil {
		t.Fatal(err)
	}
	private, err := locations.Create("/private")
	if err != nil {
		t.Fatal(err)
	}
	user, err := users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := permissions.Grant(private, user.UUID); err != nil {
		t.Fatal(err)
	}

	handler := Identity(identityHeader)(
		AccessControl(authorizer, false)(okHandler()))

	tests := []struct {
		name string
		path string
		user string
		want int
	}{
		{"open location anonymous", "/pub/wine", "", http.StatusOK},
		{"protected anonymous", "/private/doc", "", http.StatusUnauthorized},
		{"protected granted", "/private/doc", user.UUID, http.StatusOK},
		{"protected not granted", "/private/doc", "other-user", http.StatusForbidden},
		{"unprotected denied by policy", "/elsewhere", user.UUID, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != "" {
				req.Header.Set(identityHeader, tt.user)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestAccessControl_UnprotectedAllowed(t *testing.T) {
	authorizer, _, _, _ := newAuthorizer(t)

	handler := AccessControl(authorizer, true)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with allow policy", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	handler := AdminAuth(string(hash))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/admin/api/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/api/users", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/api/users", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", rec.Code)
	}
}

func TestAdminAuth_DisabledWithoutHash(t *testing.T) {
	handler := AdminAuth("")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/users", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when admin auth disabled", rec.Code)
	}
}
