package profilerepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
)

// Repo is an in-memory implementation of profilerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.UserID]profilerepo.Profile
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.UserID]profilerepo.Profile),
	}
}

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	_ = ctx
	if p.ID == "" {
		return profilerepo.ErrAlreadyExists // treat empty ID as invalid; app layer validates first
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return profilerepo.ErrAlreadyExists
	}
	r.byID[p.ID] = p.Clone()
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.UserID) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *Repo) List(ctx context.Context) ([]profilerepo.Profile, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]profilerepo.Profile, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update holds the write lock for the whole read-modify-write.
func (r *Repo) Update(ctx context.Context, id domain.UserID, fn profilerepo.UpdateFunc) (profilerepo.Profile, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	next := existing.Clone()
	if err := fn(&next); err != nil {
		return profilerepo.Profile{}, err
	}
	next.ID = existing.ID
	next.CreatedAt = existing.CreatedAt

	r.byID[id] = next.Clone()
	return next, nil
}

// Put stores p unconditionally. Tests use it to seed legacy or malformed rows.
func (r *Repo) Put(p profilerepo.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p.Clone()
}
