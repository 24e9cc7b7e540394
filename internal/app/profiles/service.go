package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	clockport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
)

type Service struct {
	repo profilerepo.Repository
	clk  clockport.Clock
	log  *zap.Logger

	// BatchConcurrency bounds the number of parallel per-id reads in GetProfiles.
	BatchConcurrency int
}

func NewService(repo profilerepo.Repository, clk clockport.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:             repo,
		clk:              clk,
		log:              log.Named("profiles"),
		BatchConcurrency: 8,
	}
}

// recordPatch is a validated set of writes applied inside a single atomic update.
type recordPatch []func(rec *profilerepo.Profile)

// errUnchanged aborts an update that would not change the record.
var errUnchanged = errors.New("profile unchanged")

func (s *Service) CreateProfile(ctx context.Context, in CreateProfileInput) (domain.Profile, error) {
	id := domain.UserID(strings.TrimSpace(string(in.ID)))
	if id == "" {
		return domain.Profile{}, validationError("invalid id", map[string]any{"id": "must be non-empty"})
	}
	fullName := domain.NormalizeHumanName(in.FullName)
	if fullName == "" {
		return domain.Profile{}, validationError("invalid fullName", map[string]any{"fullName": "must be non-empty"})
	}
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.Profile{}, validationError("invalid email", map[string]any{"email": err.Error()})
	}
	phone, err := writePhone(in.Phone)
	if err != nil {
		return domain.Profile{}, err
	}
	availability, err := availabilityInput(in.Availability)
	if err != nil {
		return domain.Profile{}, err
	}
	workExperience, err := writeWorkExperience(in.WorkExperience)
	if err != nil {
		return domain.Profile{}, err
	}
	education, err := writeEducation(in.Education)
	if err != nil {
		return domain.Profile{}, err
	}
	languages, err := writeLanguages(in.Languages)
	if err != nil {
		return domain.Profile{}, err
	}
	skills, err := writeSkills(s.log, in.Skills)
	if err != nil {
		return domain.Profile{}, err
	}

	level := domain.AccessPublic
	if in.AccessLevel != nil {
		l, ok := domain.ParseAccessLevel(strings.TrimSpace(*in.AccessLevel))
		if !ok {
			return domain.Profile{}, invalidAccessLevel("accessLevel")
		}
		level = l
	}
	permitted, err := ValidatePermittedUsers(s.log, in.PermittedUsers)
	if err != nil {
		return domain.Profile{}, err
	}
	requests, err := ValidateAccessRequests(s.log, in.AccessRequests)
	if err != nil {
		return domain.Profile{}, err
	}

	flags := domain.DefaultShowFlags()
	for g, o := range in.Show.byGroup() {
		if o.IsSpecified() && !o.IsNull() {
			flags.Set(g, o.Value())
		}
	}

	now := s.clk.Now()
	rec := profilerepo.Profile{
		ID:                  id,
		FullName:            fullName,
		Email:               email,
		Phone:               phone,
		LinkedIn:            domain.NormalizeOptionalText(in.LinkedIn),
		Portfolio:           domain.NormalizeOptionalText(in.Portfolio),
		ProfessionalSummary: in.ProfessionalSummary,
		Availability:        availability,
		WorkExperience:      workExperience,
		Education:           education,
		Languages:           languages,
		Skills:              skills,
		AccessLevel:         string(level),
		PermittedUsers:      userIDsToStrings(permitted),
		AccessRequests:      userIDsToStrings(requests),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for g, p := range showFlagPtrs(&rec) {
		*p = boolPtr(flags.Enabled(g))
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return domain.Profile{}, s.repoError("create", id, err)
	}
	s.log.Info("profile created", zap.String("profile_id", string(id)), zap.String("access_level", string(level)))
	return toDomain(s.log, rec), nil
}

func (s *Service) UpdateProfile(ctx context.Context, id domain.UserID, in UpdateProfileInput) (domain.Profile, error) {
	patch, err := s.compileProfilePatch(in)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.applyPatch(ctx, "update", id, patch)
}

// UpdateProfileSettings writes only the access-control block.
func (s *Service) UpdateProfileSettings(ctx context.Context, id domain.UserID, in UpdateSettingsInput) (domain.ProfileSettings, error) {
	patch, err := s.compileSettingsPatch("visibility", in.Visibility, in.Show, in.PermittedUsers, in.AccessRequests)
	if err != nil {
		return domain.ProfileSettings{}, err
	}
	p, err := s.applyPatch(ctx, "update_settings", id, patch)
	if err != nil {
		return domain.ProfileSettings{}, err
	}
	return p.Settings(), nil
}

// GetMyProfile returns the unfiltered owner view.
func (s *Service) GetMyProfile(ctx context.Context, owner domain.UserID) (domain.ProfileView, error) {
	p, err := s.get(ctx, owner)
	if err != nil {
		return domain.ProfileView{}, err
	}
	return domain.OwnerView(p), nil
}

// GetProfile returns the projection of profile id visible to viewer.
// The owner gets the unfiltered view.
func (s *Service) GetProfile(ctx context.Context, id, viewer domain.UserID) (domain.ProfileView, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return domain.ProfileView{}, err
	}
	return project(p, viewer), nil
}

// ListProfiles returns every profile projected independently for viewer.
func (s *Service) ListProfiles(ctx context.Context, viewer domain.UserID) ([]domain.ProfileView, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.repoError("list", "", err)
	}
	out := make([]domain.ProfileView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, project(toDomain(s.log, rec), viewer))
	}
	return out, nil
}

// GetProfiles reads ids in parallel and projects each one independently for
// viewer. The output follows the input order; blank and unknown ids are skipped.
func (s *Service) GetProfiles(ctx context.Context, ids []domain.UserID, viewer domain.UserID) ([]domain.ProfileView, error) {
	results := make([]*domain.ProfileView, len(ids))

	eg, ctx := errgroup.WithContext(ctx)
	if s.BatchConcurrency > 0 {
		eg.SetLimit(s.BatchConcurrency)
	}
	for i, id := range ids {
		id = domain.UserID(strings.TrimSpace(string(id)))
		if id == "" {
			continue
		}
		eg.Go(func() error {
			p, err := s.get(ctx, id)
			if err != nil {
				if IsCode(err, CodeNotFound) {
					return nil
				}
				return err
			}
			v := project(p, viewer)
			results[i] = &v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ProfileView, 0, len(ids))
	for _, v := range results {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, nil
}

// RequestAccess records a pending access request from requester.
// It is a no-op for the owner, for permitted users and for repeated requests.
func (s *Service) RequestAccess(ctx context.Context, profileID, requester domain.UserID) error {
	_, err := s.repo.Update(ctx, profileID, func(rec *profilerepo.Profile) error {
		next, changed, err := accessFromRecord(*rec).RequestAccess(rec.ID, requester)
		if err != nil {
			return validationError("invalid requester", map[string]any{"requesterId": err.Error()})
		}
		if !changed {
			return errUnchanged
		}
		rec.AccessRequests = userIDsToStrings(next.AccessRequests)
		rec.UpdatedAt = s.clk.Now()
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return s.repoError("request_access", profileID, err)
	}
	return nil
}

// DecideAccess applies the owner's grant or denial of requester's access request.
// Only the profile owner may decide.
func (s *Service) DecideAccess(ctx context.Context, profileID, requester domain.UserID, grant bool, decidedBy domain.UserID) error {
	_, err := s.repo.Update(ctx, profileID, func(rec *profilerepo.Profile) error {
		next, err := accessFromRecord(*rec).DecideAccess(rec.ID, requester, decidedBy, grant)
		switch {
		case errors.Is(err, domain.ErrNotOwner):
			return forbiddenError("Only the profile owner may decide access requests.")
		case err != nil:
			return validationError("invalid requester", map[string]any{"requesterId": err.Error()})
		}
		rec.PermittedUsers = userIDsToStrings(next.PermittedUsers)
		rec.AccessRequests = userIDsToStrings(next.AccessRequests)
		rec.UpdatedAt = s.clk.Now()
		return nil
	})
	if err != nil {
		return s.repoError("decide_access", profileID, err)
	}
	s.log.Info("access request decided",
		zap.String("profile_id", string(profileID)),
		zap.String("requester_id", string(requester)),
		zap.Bool("granted", grant))
	return nil
}

func (s *Service) get(ctx context.Context, id domain.UserID) (domain.Profile, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Profile{}, s.repoError("get", id, err)
	}
	return toDomain(s.log, rec), nil
}

func (s *Service) applyPatch(ctx context.Context, op string, id domain.UserID, patch recordPatch) (domain.Profile, error) {
	rec, err := s.repo.Update(ctx, id, func(rec *profilerepo.Profile) error {
		for _, apply := range patch {
			apply(rec)
		}
		rec.UpdatedAt = s.clk.Now()
		return nil
	})
	if err != nil {
		return domain.Profile{}, s.repoError(op, id, err)
	}
	return toDomain(s.log, rec), nil
}

func (s *Service) compileProfilePatch(in UpdateProfileInput) (recordPatch, error) {
	var patch recordPatch

	if in.FullName.IsSpecified() {
		if in.FullName.IsNull() {
			return nil, validationError("invalid fullName", map[string]any{"fullName": "cannot be null"})
		}
		fullName := domain.NormalizeHumanName(in.FullName.Value())
		if fullName == "" {
			return nil, validationError("invalid fullName", map[string]any{"fullName": "must be non-empty"})
		}
		patch = append(patch, func(rec *profilerepo.Profile) { rec.FullName = fullName })
	}

	if in.Email.IsSpecified() {
		if in.Email.IsNull() {
			return nil, validationError("invalid email", map[string]any{"email": "cannot be null"})
		}
		email := strings.TrimSpace(in.Email.Value())
		if err := validateEmail(email); err != nil {
			return nil, validationError("invalid email", map[string]any{"email": err.Error()})
		}
		patch = append(patch, func(rec *profilerepo.Profile) { rec.Email = email })
	}

	if in.Phone.IsSpecified() {
		var raw json.RawMessage
		if !in.Phone.IsNull() {
			var err error
			if raw, err = writePhone(in.Phone.Value()); err != nil {
				return nil, err
			}
		}
		patch = append(patch, func(rec *profilerepo.Profile) { rec.Phone = raw })
	}

	if in.LinkedIn.IsSpecified() {
		v := optionalText(in.LinkedIn)
		patch = append(patch, func(rec *profilerepo.Profile) { rec.LinkedIn = v })
	}
	if in.Portfolio.IsSpecified() {
		v := optionalText(in.Portfolio)
		patch = append(patch, func(rec *profilerepo.Profile) { rec.Portfolio = v })
	}

	if in.ProfessionalSummary.IsSpecified() {
		if in.ProfessionalSummary.IsNull() {
			return nil, validationError("invalid professionalSummary", map[string]any{"professionalSummary": "cannot be null"})
		}
		summary := in.ProfessionalSummary.Value()
		patch = append(patch, func(rec *profilerepo.Profile) { rec.ProfessionalSummary = summary })
	}

	if in.Availability.IsSpecified() {
		var v *string
		if !in.Availability.IsNull() {
			raw := in.Availability.Value()
			var err error
			if v, err = availabilityInput(&raw); err != nil {
				return nil, err
			}
		}
		patch = append(patch, func(rec *profilerepo.Profile) { rec.Availability = v })
	}

	collections := []struct {
		in    Optional[json.RawMessage]
		write func([]byte) (json.RawMessage, error)
		dst   func(rec *profilerepo.Profile) *json.RawMessage
	}{
		{in.WorkExperience, writeWorkExperience, func(rec *profilerepo.Profile) *json.RawMessage { return &rec.WorkExperience }},
		{in.Education, writeEducation, func(rec *profilerepo.Profile) *json.RawMessage { return &rec.Education }},
		{in.Languages, writeLanguages, func(rec *profilerepo.Profile) *json.RawMessage { return &rec.Languages }},
		{in.Skills, func(b []byte) (json.RawMessage, error) { return writeSkills(s.log, b) }, func(rec *profilerepo.Profile) *json.RawMessage { return &rec.Skills }},
	}
	for _, c := range collections {
		if !c.in.IsSpecified() {
			continue
		}
		// null clears the collection.
		raw, err := c.write(c.in.Value())
		if err != nil {
			return nil, err
		}
		dst := c.dst
		patch = append(patch, func(rec *profilerepo.Profile) { *dst(rec) = raw })
	}

	settings, err := s.compileSettingsPatch("accessLevel", in.AccessLevel, in.Show, in.PermittedUsers, in.AccessRequests)
	if err != nil {
		return nil, err
	}
	return append(patch, settings...), nil
}

func (s *Service) compileSettingsPatch(levelField string, level Optional[string], show ShowFlagsPatch, permitted, requests Optional[json.RawMessage]) (recordPatch, error) {
	var patch recordPatch

	if level.IsSpecified() {
		if level.IsNull() {
			return nil, validationError("invalid "+levelField, map[string]any{levelField: "cannot be null"})
		}
		l, ok := domain.ParseAccessLevel(strings.TrimSpace(level.Value()))
		if !ok {
			return nil, invalidAccessLevel(levelField)
		}
		patch = append(patch, func(rec *profilerepo.Profile) { rec.AccessLevel = string(l) })
	}

	for g, o := range show.byGroup() {
		if !o.IsSpecified() {
			continue
		}
		if o.IsNull() {
			return nil, validationError("invalid show flag", map[string]any{string(g): "cannot be null"})
		}
		g, v := g, o.Value()
		patch = append(patch, func(rec *profilerepo.Profile) { *showFlagPtrs(rec)[g] = boolPtr(v) })
	}

	if permitted.IsSpecified() {
		ids, err := ValidatePermittedUsers(s.log, permitted.Value())
		if err != nil {
			return nil, err
		}
		list := userIDsToStrings(ids)
		patch = append(patch, func(rec *profilerepo.Profile) { rec.PermittedUsers = list })
	}
	if requests.IsSpecified() {
		ids, err := ValidateAccessRequests(s.log, requests.Value())
		if err != nil {
			return nil, err
		}
		list := userIDsToStrings(ids)
		patch = append(patch, func(rec *profilerepo.Profile) { rec.AccessRequests = list })
	}
	return patch, nil
}

// repoError maps repository errors to application errors. Errors raised by
// update callbacks are already application errors and pass through.
func (s *Service) repoError(op string, id domain.UserID, err error) error {
	ae := (*Error)(nil)
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, profilerepo.ErrNotFound):
		return notFoundError()
	case errors.Is(err, profilerepo.ErrAlreadyExists):
		return alreadyExistsError()
	default:
		s.log.Error("profile storage failure",
			zap.String("op", op),
			zap.String("profile_id", string(id)),
			zap.Error(err))
		return storageError()
	}
}

func project(p domain.Profile, viewer domain.UserID) domain.ProfileView {
	if viewer != "" && viewer == p.ID {
		return domain.OwnerView(p)
	}
	return domain.ViewerView(p, viewer)
}

func accessFromRecord(rec profilerepo.Profile) domain.AccessControl {
	return domain.AccessControl{
		PermittedUsers: stringsToUserIDs(rec.PermittedUsers),
		AccessRequests: stringsToUserIDs(rec.AccessRequests),
	}
}

func availabilityInput(v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	a, ok := domain.ParseAvailability(strings.TrimSpace(*v))
	if !ok {
		return nil, validationError("invalid availability", map[string]any{
			"availability": "must be one of available, open, unavailable",
		})
	}
	out := string(a)
	return &out, nil
}

func invalidAccessLevel(field string) *Error {
	return validationError("invalid "+field, map[string]any{field: "must be one of public, private, restricted"})
}

func optionalText(o Optional[string]) *string {
	if o.IsNull() {
		return nil
	}
	v := o.Value()
	return domain.NormalizeOptionalText(&v)
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}
