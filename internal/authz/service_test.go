package authz

import (
	"testing"
)

// fixture builds the registries plus an authorizer over one shared
// in-memory store.
func newAuthFixture() (registries, *Authorizer) {
	r := newRegistries()
	return r, NewAuthorizer(r.locations, r.permissions)
}

func TestAuthorizer_NoLocations(t *testing.T) {
	_, auth := newAuthFixture()

	if d := auth.CanAccess("/anything", ""); d != DecisionUnprotected {
		t.Errorf("CanAccess() = %v, want unprotected", d)
	}
}

func TestAuthorizer_OpenAccess(t *testing.T) {
	r, auth := newAuthFixture()

	l, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.locations.SetOpenAccess(l.UUID, true); err != nil {
		t.Fatal(err)
	}

	// Open locations allow access even without identity.
	if d := auth.CanAccess("/pub/wine", ""); d != DecisionAllowed {
		t.Errorf("CanAccess(anonymous) = %v, want allowed", d)
	}
	if d := auth.CanAccess("/pub/wine", "some-user"); d != DecisionAllowed {
		t.Errorf("CanAccess(user) = %v, want allowed", d)
	}
}

func TestAuthorizer_PermissionRequired(t *testing.T) {
	r, auth := newAuthFixture()

	location, err := r.locations.Create("/private")
	if err != nil {
		t.Fatal(err)
	}
	user, err := r.users.Create("foo@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if d := auth.CanAccess("/private/doc", ""); d != DecisionDenied {
		t.Errorf("CanAccess(anonymous) = %v, want denied", d)
	}
	if d := auth.CanAccess("/private/doc", user.UUID); d != DecisionDenied {
		t.Errorf("CanAccess(no grant) = %v, want denied", d)
	}

	if _, _, err := r.permissions.Grant(location, user.UUID); err != nil {
		t.Fatal(err)
	}
	if d := auth.CanAccess("/private/doc", user.UUID); d != DecisionAllowed {
		t.Errorf("CanAccess(granted) = %v, want allowed", d)
	}

	// A vanished identity is denied, never an internal error.
	if d := auth.CanAccess("/private/doc", "no-such-user"); d != DecisionDenied {
		t.Errorf("CanAccess(unknown user) = %v, want denied", d)
	}
}

// A more specific non-open location overrides an open parent.
func TestAuthorizer_OverridePrecedence(t *testing.T) {
	r, auth := newAuthFixture()

	pub, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.locations.SetOpenAccess(pub.UUID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := r.locations.Create("/pub/beer"); err != nil {
		t.Fatal(err)
	}

	if d := auth.CanAccess("/pub/other", ""); d != DecisionAllowed {
		t.Errorf("CanAccess(/pub/other) = %v, want allowed", d)
	}
	if d := auth.CanAccess("/pub/beer", ""); d != DecisionDenied {
		t.Errorf("CanAccess(/pub/beer) = %v, want denied", d)
	}
	if d := auth.CanAccess("/pub/beer/lager", ""); d != DecisionDenied {
		t.Errorf("CanAccess(/pub/beer/lager) = %v, want denied", d)
	}
}

// The full scenario: "/" closed, "/pub" open, "/pub/beer" closed with
// a single user granted.
func TestAuthorizer_Scenario(t *testing.T) {
	r, auth := newAuthFixture()

	if _, err := r.locations.Create("/"); err != nil {
		t.Fatal(err)
	}
	pub, err := r.locations.Create("/pub")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.locations.SetOpenAccess(pub.UUID, true); err != nil {
		t.Fatal(err)
	}
	beer, err := r.locations.Create("/pub/beer")
	if err != nil {
		t.Fatal(err)
	}
	u1, err := r.users.Create("u1@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.permissions.Grant(beer, u1.UUID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		user string
		want Decision
	}{
		{"/pub/wine", "", DecisionAllowed},
		{"/pub/beer", "", DecisionDenied},
		{"/pub/beer", u1.UUID, DecisionAllowed},
		// "/other" resolves to the closed root location, so access
		// requires a grant on "/".
		{"/other", u1.UUID, DecisionDenied},
		{"/other", "", DecisionDenied},
	}
	for _, tt := range tests {
		if got := auth.CanAccess(tt.path, tt.user); got != tt.want {
			t.Errorf("CanAccess(%q, %q) = %v, want %v", tt.path, tt.user, got, tt.want)
		}
	}
}

func TestDecision_String(t *testing.T) {
	if DecisionAllowed.String() != "allowed" ||
		DecisionDenied.String() != "denied" ||
		DecisionUnprotected.String() != "unprotected" {
		t.Error("unexpected decision names")
	}
}
