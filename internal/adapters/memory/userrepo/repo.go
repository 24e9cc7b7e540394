package userrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.UserID]userrepo.User
	idByEmail map[string]domain.UserID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.UserID]userrepo.User),
		idByEmail: make(map[string]domain.UserID),
	}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_ = ctx
	if u.ID == "" {
		return userrepo.ErrAlreadyExists
	}
	email := strings.ToLower(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userrepo.ErrAlreadyExists
	}
	if _, ok := r.idByEmail[email]; ok {
		return userrepo.ErrEmailTaken
	}
	r.byID[u.ID] = cloneUser(u)
	r.idByEmail[email] = u.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) List(ctx context.Context) ([]userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]userrepo.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneUser(u userrepo.User) userrepo.User {
	out := u
	if u.Name != nil {
		v := *u.Name
		out.Name = &v
	}
	return out
}
