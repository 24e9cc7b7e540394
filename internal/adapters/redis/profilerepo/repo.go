package profilerepo

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	redisadapter "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
)

// Repo is a Redis implementation of profilerepo.Repository.
//
// Each profile is a msgpack blob under "<prefix>profile:<id>"; a sorted set
// scored by createdAt keeps List ordering.
type Repo struct {
	client *goredis.Client
	prefix string
}

func NewRepo(client *goredis.Client, prefix string) *Repo {
	return &Repo{client: client, prefix: prefix}
}

func (r *Repo) key(id domain.UserID) string { return r.prefix + "profile:" + string(id) }
func (r *Repo) indexKey() string { return r.prefix + "profiles:by_created" }

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	if r.client == nil {
		return errors.New("nil redis client")
	}
	if p.ID == "" {
		return profilerepo.ErrAlreadyExists
	}
	blob, err := msgpack.Marshal(p)
	if err != nil {
		return err
	}
	key := r.key(p.ID)
	return redisadapter.Watch(ctx, r.client, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return profilerepo.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, blob, 0)
			pipe.ZAdd(ctx, r.indexKey(), goredis.Z{
				Score:  float64(p.CreatedAt.UnixMicro()),
				Member: string(p.ID),
			})
			return nil
		})
		return err
	}, key)
}

func (r *Repo) Get(ctx context.Context, id domain.UserID) (profilerepo.Profile, error) {
	if r.client == nil {
		return profilerepo.Profile{}, errors.New("nil redis client")
	}
	return r.load(ctx, r.client, id)
}

func (r *Repo) List(ctx context.Context) ([]profilerepo.Profile, error) {
	if r.client == nil {
		return nil, errors.New("nil redis client")
	}
	// Members with equal scores come back in lexicographic order.
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]profilerepo.Profile, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(domain.UserID(id))
	}
	blobs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, b := range blobs {
		s, ok := b.(string)
		if !ok {
			continue
		}
		p, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Update retries the read-modify-write while the key is modified concurrently.
func (r *Repo) Update(ctx context.Context, id domain.UserID, fn profilerepo.UpdateFunc) (profilerepo.Profile, error) {
	if r.client == nil {
		return profilerepo.Profile{}, errors.New("nil redis client")
	}
	key := r.key(id)
	var out profilerepo.Profile
	err := redisadapter.Watch(ctx, r.client, func(tx *goredis.Tx) error {
		existing, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		next := existing.Clone()
		if err := fn(&next); err != nil {
			return err
		}
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt

		blob, err := msgpack.Marshal(next)
		if err != nil {
			return err
		}
		if _, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, blob, 0)
			return nil
		}); err != nil {
			return err
		}
		out = next
		return nil
	}, key)
	if err != nil {
		return profilerepo.Profile{}, err
	}
	return out, nil
}

func (r *Repo) load(ctx context.Context, c goredis.Cmdable, id domain.UserID) (profilerepo.Profile, error) {
	b, err := c.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return profilerepo.Profile{}, profilerepo.ErrNotFound
		}
		return profilerepo.Profile{}, err
	}
	return decode(b)
}

func decode(b []byte) (profilerepo.Profile, error) {
	var p profilerepo.Profile
	if err := msgpack.Unmarshal(b, &p); err != nil {
		return profilerepo.Profile{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
