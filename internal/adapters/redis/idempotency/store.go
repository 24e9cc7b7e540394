package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/idempotency"
)

// Store is a Redis implementation of idempotency.Store. Records expire after TTL.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(client *goredis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

type record struct {
	StatusCode  int    `msgpack:"status"`
	ContentType string `msgpack:"content_type"`
	Body        []byte `msgpack:"body"`
	CreatedAt   int64  `msgpack:"created_at_us"`
}

// key hashes the fingerprint so that arbitrary client keys stay bounded.
func (s *Store) key(fp idempotency.Fingerprint) string {
	h := sha256.New()
	for _, part := range []string{string(fp.Key), string(fp.Subject), fp.Method, fp.Route, fp.BodyHash} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return s.prefix + "idem:" + hex.EncodeToString(h.Sum(nil))
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.client == nil {
		return idempotency.Record{}, false, errors.New("nil redis client")
	}
	b, err := s.client.Get(ctx, s.key(fp)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	var rec record
	if err := msgpack.Unmarshal(b, &rec); err != nil {
		return idempotency.Record{}, false, err
	}
	return idempotency.Record{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   time.UnixMicro(rec.CreatedAt).UTC(),
	}, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.client == nil {
		return errors.New("nil redis client")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	b, err := msgpack.Marshal(record{
		StatusCode:  rec.StatusCode,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   createdAt.UnixMicro(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(fp), b, s.ttl).Err()
}
