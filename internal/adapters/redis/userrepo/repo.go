package userrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	redisadapter "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/userrepo"
)

// Repo is a Redis implementation of userrepo.Repository.
type Repo struct {
	client *goredis.Client
	prefix string
}

func NewRepo(client *goredis.Client, prefix string) *Repo {
	return &Repo{client: client, prefix: prefix}
}

// record is the msgpack shape of a stored user.
type record struct {
	ID        string  `msgpack:"id"`
	Email     string  `msgpack:"email"`
	Name      *string `msgpack:"name"`
	CreatedAt int64   `msgpack:"created_at_us"`
}

func (r *Repo) key(id domain.UserID) string { return r.prefix + "user:" + string(id) }

func (r *Repo) emailKey(email string) string {
	return r.prefix + "user_email:" + strings.ToLower(email)
}

func (r *Repo) indexKey() string { return r.prefix + "users:by_created" }

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	if r.client == nil {
		return errors.New("nil redis client")
	}
	if u.ID == "" {
		return userrepo.ErrAlreadyExists
	}
	blob, err := msgpack.Marshal(toRecord(u))
	if err != nil {
		return err
	}
	key, emailKey := r.key(u.ID), r.emailKey(u.Email)
	return redisadapter.Watch(ctx, r.client, func(tx *goredis.Tx) error {
		if n, err := tx.Exists(ctx, key).Result(); err != nil {
			return err
		} else if n > 0 {
			return userrepo.ErrAlreadyExists
		}
		if n, err := tx.Exists(ctx, emailKey).Result(); err != nil {
			return err
		} else if n > 0 {
			return userrepo.ErrEmailTaken
		}
		_, err := tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, blob, 0)
			pipe.Set(ctx, emailKey, string(u.ID), 0)
			pipe.ZAdd(ctx, r.indexKey(), goredis.Z{
				Score:  float64(u.CreatedAt.UnixMicro()),
				Member: string(u.ID),
			})
			return nil
		})
		return err
	}, key, emailKey)
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	if r.client == nil {
		return userrepo.User{}, errors.New("nil redis client")
	}
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	return decode(b)
}

func (r *Repo) List(ctx context.Context) ([]userrepo.User, error) {
	if r.client == nil {
		return nil, errors.New("nil redis client")
	}
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]userrepo.User, 0, len(ids))
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
		u, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func toRecord(u userrepo.User) record {
	return record{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt.UnixMicro(),
	}
}

func decode(b []byte) (userrepo.User, error) {
	var rec record
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return userrepo.User{}, err
	}
	return userrepo.User{
		ID:        domain.UserID(rec.ID),
		Email:     rec.Email,
		Name:      rec.Name,
		CreatedAt: time.UnixMicro(rec.CreatedAt).UTC(),
	}, nil
}
