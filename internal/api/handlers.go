package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yarko/wwwhisper/internal/authz"
	"github.com/yarko/wwwhisper/internal/middleware"
	"github.com/yarko/wwwhisper/internal/store"
	"github.com/yarko/wwwhisper/internal/urlpath"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// isCreationError reports whether err is a recoverable input error
// from user or location creation.
func isCreationError(err error) bool {
	return errors.Is(err, urlpath.ErrNotCanonical) ||
		errors.Is(err, urlpath.ErrHasFragment) ||
		errors.Is(err, urlpath.ErrHasQuery) ||
		errors.Is(err, urlpath.ErrHasParams) ||
		errors.Is(err, authz.ErrInvalidEmail) ||
		errors.Is(err, store.ErrDuplicateUser) ||
		errors.Is(err, store.ErrDuplicateLocation)
}

// isAuthorized answers the access control question for one request
// path. It always produces a decision status, never a 5xx caused by a
// failed lookup.
func (s *Server) isAuthorized(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if err := urlpath.Validate(path); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user := middleware.UserFromContext(r.Context())
	decision := s.authorizer.CanAccess(path, user)
	s.metrics.IncDecision(decision.String())

	logrus.WithFields(logrus.Fields{
		"path":     path,
		"user":     user,
		"decision": decision.String(),
	}).Debug("Authorization check")

	switch decision {
	case authz.DecisionAllowed:
		w.WriteHeader(http.StatusOK)
	case authz.DecisionUnprotected:
		if s.config.Auth.UnprotectedAction == "allow" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		if user == "" {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	user, err := s.users.Create(req.Email)
	if err != nil {
		if isCreationError(err) {
			s.metrics.IncAdminOp("create_user", "rejected")
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.internalError(w, "create_user", err)
		return
	}

	s.metrics.IncAdminOp("create_user", "ok")
	logrus.WithFields(logrus.Fields{
		"email": user.Email,
		"user":  user.UUID,
	}).Info("User created")
	writeJSON(w, http.StatusCreated, s.repr.user(user))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	// With an email filter this is a lookup, not an enumeration.
	if email := r.URL.Query().Get("email"); email != "" {
		user, err := s.users.FindByEmail(email)
		if err != nil {
			s.internalError(w, "find_user", err)
			return
		}
		if user == nil {
			writeError(w, http.StatusNotFound, authz.ErrUserNotFound)
			return
		}
		writeJSON(w, http.StatusOK, []UserResource{s.repr.user(user)})
		return
	}

	users, err := s.users.List()
	if err != nil {
		s.internalError(w, "list_users", err)
		return
	}
	writeJSON(w, http.StatusOK, s.repr.users(users))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.FindByUUID(mux.Vars(r)["uuid"])
	if err != nil {
		s.internalError(w, "get_user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, authz.ErrUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.repr.user(user))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	existed, err := s.users.Delete(uuid)
	if err != nil {
		s.internalError(w, "delete_user", err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, authz.ErrUserNotFound)
		return
	}

	s.metrics.IncAdminOp("delete_user", "ok")
	logrus.WithField("user", uuid).Info("User deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	location, err := s.locations.Create(req.Path)
	if err != nil {
		if isCreationError(err) {
			s.metrics.IncAdminOp("create_location", "rejected")
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.internalError(w, "create_location", err)
		return
	}

	s.metrics.IncAdminOp("create_location", "ok")
	logrus.WithFields(logrus.Fields{
		"location": location.Path,
		"uuid":     location.UUID,
	}).Info("Location created")
	writeJSON(w, http.StatusCreated, s.repr.location(location, nil))
}

func (s *Server) listLocations(w http.ResponseWriter, _ *http.Request) {
	locations, err := s.locations.All()
	if err != nil {
		s.internalError(w, "list_locations", err)
		return
	}

	out := make([]LocationResource, 0, len(locations))
	for i := range locations {
		allowed, err := s.permissions.AllowedUsers(&locations[i])
		if err != nil {
			s.internalError(w, "list_locations", err)
			return
		}
		out = append(out, s.repr.location(&locations[i], allowed))
	}
	writeJSON(w, http.StatusOK, out)
}

// findLocation resolves the location path variable, writing a 404 on
// a miss.
func (s *Server) findLocation(w http.ResponseWriter, r *http.Request) *store.Location {
	location, err := s.locations.FindByUUID(mux.Vars(r)["uuid"])
	if err != nil {
		s.internalError(w, "get_location", err)
		return nil
	}
	if location == nil {
		writeError(w, http.StatusNotFound, authz.ErrLocationNotFound)
		return nil
	}
	return location
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	location := s.findLocation(w, r)
	if location == nil {
		return
	}
	allowed, err := s.permissions.AllowedUsers(location)
	if err != nil {
		s.internalError(w, "get_location", err)
		return
	}
	writeJSON(w, http.StatusOK, s.repr.location(location, allowed))
}

func (s *Server) deleteLocation(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]
	existed, err := s.locations.Delete(uuid)
	if err != nil {
		s.internalError(w, "delete_location", err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, authz.ErrLocationNotFound)
		return
	}

	s.metrics.IncAdminOp("delete_location", "ok")
	logrus.WithField("uuid", uuid).Info("Location deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setOpenAccess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OpenAccess bool `json:"openAccess"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	location, err := s.locations.SetOpenAccess(mux.Vars(r)["uuid"], req.OpenAccess)
	if err != nil {
		if errors.Is(err, authz.ErrLocationNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.internalError(w, "set_open_access", err)
		return
	}

	s.metrics.IncAdminOp("set_open_access", "ok")
	logrus.WithFields(logrus.Fields{
		"location": location.Path,
		"open":     location.OpenAccess,
	}).Info("Open access updated")

	allowed, err := s.permissions.AllowedUsers(location)
	if err != nil {
		s.internalError(w, "set_open_access", err)
		return
	}
	writeJSON(w, http.StatusOK, s.repr.location(location, allowed))
}

func (s *Server) listAllowedUsers(w http.ResponseWriter, r *http.Request) {
	location := s.findLocation(w, r)
	if location == nil {
		return
	}
	allowed, err := s.permissions.AllowedUsers(location)
	if err != nil {
		s.internalError(w, "list_allowed_users", err)
		return
	}
	writeJSON(w, http.StatusOK, s.repr.users(allowed))
}

func (s *Server) grantPermission(w http.ResponseWriter, r *http.Request) {
	location := s.findLocation(w, r)
	if location == nil {
		return
	}
	userUUID := mux.Vars(r)["user"]

	_, created, err := s.permissions.Grant(location, userUUID)
	if err != nil {
		if errors.Is(err, authz.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.internalError(w, "grant", err)
		return
	}

	user, err := s.users.FindByUUID(userUUID)
	if err != nil {
		s.internalError(w, "grant", err)
		return
	}
	if user == nil {
		// Deleting the user revoked the grant that just succeeded.
		writeError(w, http.StatusNotFound, authz.ErrUserNotFound)
		return
	}

	s.metrics.IncAdminOp("grant", "ok")
	logrus.WithFields(logrus.Fields{
		"location": location.Path,
		"user":     userUUID,
		"created":  created,
	}).Info("Permission granted")

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, s.repr.permission(location, user))
}

func (s *Server) revokePermission(w http.ResponseWriter, r *http.Request) {
	location := s.findLocation(w, r)
	if location == nil {
		return
	}
	userUUID := mux.Vars(r)["user"]

	if err := s.permissions.Revoke(location, userUUID); err != nil {
		if errors.Is(err, authz.ErrUserNotFound) || errors.Is(err, authz.ErrPermissionNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.internalError(w, "revoke", err)
		return
	}

	s.metrics.IncAdminOp("revoke", "ok")
	logrus.WithFields(logrus.Fields{
		"location": location.Path,
		"user":     userUUID,
	}).Info("Permission revoked")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPermission(w http.ResponseWriter, r *http.Request) {
	location := s.findLocation(w, r)
	if location == nil {
		return
	}
	userUUID := mux.Vars(r)["user"]

	if _, err := s.permissions.Get(location, userUUID); err != nil {
		if errors.Is(err, authz.ErrUserNotFound) || errors.Is(err, authz.ErrPermissionNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		s.internalError(w, "get_permission", err)
		return
	}

	user, err := s.users.FindByUUID(userUUID)
	if err != nil {
		s.internalError(w, "get_permission", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, authz.ErrUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.repr.permission(location, user))
}

func (s *Server) internalError(w http.ResponseWriter, operation string, err error) {
	s.metrics.IncError()
	logrus.WithFields(logrus.Fields{
		"operation": operation,
		"error":     err,
	}).Error("Admin operation failed")
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
