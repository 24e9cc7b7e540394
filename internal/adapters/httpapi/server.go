package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/profiles"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/users"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/idempotency"
)

// Server implements the HTTP handlers on top of the application services.
type Server struct {
	Profiles *profiles.Service
	Users    *users.Service
	Idem     idempotency.Store

	log *zap.Logger
}

func NewServer(profilesSvc *profiles.Service, usersSvc *users.Service, idem idempotency.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Profiles: profilesSvc,
		Users:    usersSvc,
		Idem:     idem,
		log:      log.Named("httpapi"),
	}
}

// subject returns the authenticated subject or writes a 401.
func (s *Server) subject(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
	}
	return sub, ok
}

func (s *Server) CreateProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body CreateProfileRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	p, err := s.Profiles.CreateProfile(r.Context(), createProfileInputFromRequest(sub, body))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProfileEnvelope{Profile: profileFromView(domain.OwnerView(p))})
}

// ListProfiles lists every profile, or with ?ids=a,b,c reads just those ids in
// the given order.
func (s *Server) ListProfiles(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}

	var (
		views []domain.ProfileView
		err   error
	)
	if r.URL.Query().Has("ids") {
		views, err = s.Profiles.GetProfiles(r.Context(), splitIDs(r.URL.Query().Get("ids")), sub)
	} else {
		views, err = s.Profiles.ListProfiles(r.Context(), sub)
	}
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}

	out := make([]ProfileResponse, 0, len(views))
	for _, v := range views {
		out = append(out, profileFromView(v))
	}
	writeJSON(w, http.StatusOK, ProfileListResponse{Profiles: out})
}

func (s *Server) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	v, err := s.Profiles.GetMyProfile(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Profile: profileFromView(v)})
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	id := domain.UserID(chi.URLParam(r, "profileId"))
	v, err := s.Profiles.GetProfile(r.Context(), id, sub)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileEnvelope{Profile: profileFromView(v)})
}

func (s *Server) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body UpdateProfileRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	s.withIdempotency(w, r, sub, "/profiles/me", body, func() (any, error) {
		p, err := s.Profiles.UpdateProfile(r.Context(), sub, updateProfileInputFromRequest(body))
		if err != nil {
			return nil, err
		}
		return ProfileEnvelope{Profile: profileFromView(domain.OwnerView(p))}, nil
	})
}

func (s *Server) UpdateMyProfileSettings(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body UpdateSettingsRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	s.withIdempotency(w, r, sub, "/profiles/me/settings", body, func() (any, error) {
		settings, err := s.Profiles.UpdateProfileSettings(r.Context(), sub, updateSettingsInputFromRequest(body))
		if err != nil {
			return nil, err
		}
		return SettingsEnvelope{Settings: settingsFromDomain(settings)}, nil
	})
}

// RequestAccess records an access request from the caller.
func (s *Server) RequestAccess(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	id := domain.UserID(chi.URLParam(r, "profileId"))
	if err := s.Profiles.RequestAccess(r.Context(), id, sub); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DecideAccess grants or denies requesterId; the caller must own the profile.
func (s *Server) DecideAccess(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body DecideAccessRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Grant == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid grant", map[string]any{"grant": "is required"})
		return
	}

	id := domain.UserID(chi.URLParam(r, "profileId"))
	requester := domain.UserID(chi.URLParam(r, "requesterId"))
	if err := s.Profiles.DecideAccess(r.Context(), id, requester, *body.Grant, sub); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	var body CreateUserRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	u, err := s.Users.CreateUser(r.Context(), users.CreateUserInput{Email: string(body.Email), Name: body.Name})
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]UserResponse{"user": userFromDomain(u)})
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	us, err := s.Users.ListUsers(r.Context())
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	out := make([]UserResponse, 0, len(us))
	for _, u := range us {
		out = append(out, userFromDomain(u))
	}
	writeJSON(w, http.StatusOK, map[string][]UserResponse{"users": out})
}

func (s *Server) LookupUsers(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body LookupUsersRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ids := make([]domain.UserID, len(body.UserIds))
	for i, id := range body.UserIds {
		ids[i] = domain.UserID(id)
	}

	sums, err := s.Users.LookupUsers(r.Context(), sub, ids)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	out := make([]UserSummaryResponse, 0, len(sums))
	for _, u := range sums {
		out = append(out, UserSummaryResponse{ID: string(u.ID), FullName: nullableOrNull(u.FullName)})
	}
	writeJSON(w, http.StatusOK, map[string][]UserSummaryResponse{"users": out})
}

func splitIDs(raw string) []domain.UserID {
	parts := strings.Split(raw, ",")
	out := make([]domain.UserID, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, domain.UserID(p))
		}
	}
	return out
}
