package users

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	clockport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/userrepo"
)

// ProfileReader is the subset of the profile service the directory needs to
// resolve display names under the viewer's visibility.
type ProfileReader interface {
	GetProfiles(ctx context.Context, ids []domain.UserID, viewer domain.UserID) ([]domain.ProfileView, error)
}

type Service struct {
	repo     userrepo.Repository
	profiles ProfileReader
	clk      clockport.Clock
	log      *zap.Logger

	// LookupConcurrency bounds the number of parallel user reads in LookupUsers.
	LookupConcurrency int
}

func NewService(repo userrepo.Repository, profiles ProfileReader, clk clockport.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:              repo,
		profiles:          profiles,
		clk:               clk,
		log:               log.Named("users"),
		LookupConcurrency: 8,
	}
}

type CreateUserInput struct {
	Email string
	Name  *string
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.User{}, validationError("invalid email", map[string]any{"email": err.Error()})
	}
	var name *string
	if in.Name != nil {
		if n := domain.NormalizeHumanName(*in.Name); n != "" {
			name = &n
		}
	}

	u := userrepo.User{
		ID:        domain.UserID(uuid.NewString()),
		Email:     email,
		Name:      name,
		CreatedAt: s.clk.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) || errors.Is(err, userrepo.ErrAlreadyExists) {
			return domain.User{}, &Error{
				Status:  http.StatusConflict,
				Code:    CodeAlreadyExists,
				Message: "A user with this email already exists.",
			}
		}
		s.log.Error("user storage failure", zap.String("op", "create"), zap.Error(err))
		return domain.User{}, storageError()
	}
	s.log.Info("user created", zap.String("user_id", string(u.ID)))
	return toDomain(u), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	us, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error("user storage failure", zap.String("op", "list"), zap.Error(err))
		return nil, storageError()
	}
	out := make([]domain.User, 0, len(us))
	for _, u := range us {
		out = append(out, toDomain(u))
	}
	return out, nil
}

// LookupUsers resolves ids to display summaries in input order.
//
// Duplicate ids keep their first position, blank ids are dropped, and an id is
// returned when it has a directory entry or a profile. A profile's fullName is
// preferred over the directory name, but only when the viewer may see the
// profile's name.
func (s *Service) LookupUsers(ctx context.Context, viewer domain.UserID, ids []domain.UserID) ([]domain.UserSummary, error) {
	ids = lo.Uniq(lo.Filter(lo.Map(ids, func(id domain.UserID, _ int) domain.UserID {
		return domain.UserID(strings.TrimSpace(string(id)))
	}), func(id domain.UserID, _ int) bool {
		return id != ""
	}))
	if len(ids) == 0 {
		return []domain.UserSummary{}, nil
	}

	found := make([]*userrepo.User, len(ids))
	eg, egctx := errgroup.WithContext(ctx)
	if s.LookupConcurrency > 0 {
		eg.SetLimit(s.LookupConcurrency)
	}
	for i, id := range ids {
		eg.Go(func() error {
			u, err := s.repo.GetByID(egctx, id)
			if errors.Is(err, userrepo.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = &u
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		s.log.Error("user storage failure", zap.String("op", "lookup"), zap.Error(err))
		return nil, storageError()
	}

	views := map[domain.UserID]domain.ProfileView{}
	if s.profiles != nil {
		vs, err := s.profiles.GetProfiles(ctx, ids, viewer)
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			views[v.Profile.ID] = v
		}
	}

	out := make([]domain.UserSummary, 0, len(ids))
	for i, id := range ids {
		u := found[i]
		v, hasProfile := views[id]
		if u == nil && !hasProfile {
			continue
		}
		sum := domain.UserSummary{ID: id}
		if u != nil {
			sum.FullName = u.Name
		}
		if hasProfile && v.Has(domain.FieldName) && v.Profile.FullName != "" {
			name := v.Profile.FullName
			sum.FullName = &name
		}
		out = append(out, sum)
	}
	return out, nil
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}
