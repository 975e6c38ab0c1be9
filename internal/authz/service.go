package authz

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	// DecisionUnprotected means no location governs the path; the
	// caller applies its own default policy.
	DecisionUnprotected Decision = iota
	// DecisionAllowed means access is permitted.
	DecisionAllowed
	// DecisionDenied means access is not permitted.
	DecisionDenied
)

func (d Decision) String() string {
	switch d {
	case DecisionAllowed:
		return "allowed"
	case DecisionDenied:
		return "denied"
	case DecisionUnprotected:
		return "unprotected"
	default:
		return "unknown"
	}
}

// Authorizer decides whether a request path may be accessed by a user.
type Authorizer struct {
	locations   *Locations
	permissions *Permissions
}

// NewAuthorizer composes the location and permission registries into a
// decision function.
func NewAuthorizer(locations *Locations, permissions *Permissions) *Authorizer {
	return &Authorizer{locations: locations, permissions: permissions}
}

// CanAccess decides access for a normalized request path and an
// optional user identity (empty userUUID means unauthenticated). It
// always produces a decision, never an error: every internal lookup
// failure collapses to denied so that an unexpected failure can not
// open access.
func (a *Authorizer) CanAccess(path, userUUID string) Decision {
	locations, err := a.locations.All()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Error("Failed to load locations for authorization check")
		return DecisionDenied
	}

	location := FindGoverningLocation(locations, path)
	if location == nil {
		return DecisionUnprotected
	}
	if location.OpenAccess {
		return DecisionAllowed
	}
	if userUUID == "" {
		return DecisionDenied
	}

	if _, err := a.permissions.Get(location, userUUID); err != nil {
		// Not found and vanished identities are simply not
		// authorized; infrastructure failures also deny but are
		// worth reporting.
		if !errors.Is(err, ErrUserNotFound) && !errors.Is(err, ErrPermissionNotFound) {
			logrus.WithFields(logrus.Fields{
				"path":     path,
				"location": location.Path,
				"error":    err,
			}).Error("Permission lookup failed during authorization check")
		}
		return DecisionDenied
	}
	return DecisionAllowed
}
