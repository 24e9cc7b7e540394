package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/idempotency"
)

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Subject:  domain.UserID("u1"),
		Method:   "PATCH",
		Route:    "/profiles/me/settings",
		BodyHash: "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  200,
		ContentType: "application/json",
		Body:        []byte(`{"id":"u1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != rec.StatusCode || got.ContentType != rec.ContentType || string(got.Body) != string(rec.Body) {
		t.Fatalf("Get()=%+v, want %+v", got, rec)
	}

	other := fp
	other.Subject = "u2"
	if _, ok, _ := s.Get(context.Background(), other); ok {
		t.Fatalf("Get() for another subject ok=true, want false")
	}
}
