package contracttest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/idempotency"
	profilerepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
	userrepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type ProfileRepoFactory func(t *testing.T) (profilerepoport.Repository, CleanupFunc)
type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.UserID("u1"),
		Method:   "PATCH",
		Route:    "/profiles/me",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Fingerprints are scoped by route.
	other := fp
	other.Route = "/profiles/me/settings"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get other route: ok=%v err=%v", ok, err)
	}
}

func RunProfileRepo(t *testing.T, newRepo ProfileRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	summary := "Backend engineer"
	linkedIn := "https://linkedin.example/alice"
	aID := domain.UserID(uuid.NewString())
	a := profilerepoport.Profile{
		ID:                  aID,
		FullName:            "Alice Johnson",
		Email:               "alice@example.com",
		Phone:               json.RawMessage(`"+1 555 0100"`),
		LinkedIn:            &linkedIn,
		ProfessionalSummary: summary,
		WorkExperience:      json.RawMessage(`[]`),
		Education:           json.RawMessage(`[]`),
		Languages:           json.RawMessage(`[{"language":"English","fluencyLevel":"Native"}]`),
		Skills:              json.RawMessage(`[{"title":"Go","skills":[{"skill":"pgx"}]}]`),
		AccessLevel:         "private",
		ShowEmail:           boolPtr(false),
		PermittedUsers:      []string{},
		AccessRequests:      []string{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := repo.Create(ctx, a); !errors.Is(err, profilerepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate err=%v, want ErrAlreadyExists", err)
	}

	got, err := repo.Get(ctx, aID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FullName != a.FullName || got.Email != a.Email || got.AccessLevel != "private" {
		t.Fatalf("unexpected profile: %#v", got)
	}
	if got.LinkedIn == nil || *got.LinkedIn != linkedIn || got.Portfolio != nil {
		t.Fatalf("unexpected optional text: linkedIn=%v portfolio=%v", got.LinkedIn, got.Portfolio)
	}
	if got.ShowEmail == nil || *got.ShowEmail || got.ShowName != nil {
		t.Fatalf("unexpected show flags: email=%v name=%v", got.ShowEmail, got.ShowName)
	}
	assertJSONEqual(t, "skills", got.Skills, a.Skills)
	assertJSONEqual(t, "phone", got.Phone, a.Phone)
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("createdAt=%v, want %v", got.CreatedAt, now)
	}

	if _, err := repo.Get(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("Get missing err=%v, want ErrNotFound", err)
	}

	// List ordering by createdAt, then id.
	bID := domain.UserID(uuid.NewString())
	b := a
	b.ID = bID
	b.FullName = "Bob"
	b.CreatedAt = now.Add(time.Second)
	b.UpdatedAt = b.CreatedAt
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ai, bi := indexOf(list, aID), indexOf(list, bID)
	if ai < 0 || bi < 0 || ai > bi {
		t.Fatalf("unexpected ordering: a=%d b=%d", ai, bi)
	}

	// Update is read-modify-write; id and createdAt are immutable.
	later := now.Add(time.Hour)
	updated, err := repo.Update(ctx, aID, func(p *profilerepoport.Profile) error {
		p.FullName = "Alice Smith"
		p.LinkedIn = nil
		p.PermittedUsers = append(p.PermittedUsers, "u2")
		p.ID = "hijack"
		p.CreatedAt = later
		p.UpdatedAt = later
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != aID || !updated.CreatedAt.Equal(now) || !updated.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected update result: %#v", updated)
	}
	got, err = repo.Get(ctx, aID)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.FullName != "Alice Smith" || got.LinkedIn != nil || len(got.PermittedUsers) != 1 || got.PermittedUsers[0] != "u2" {
		t.Fatalf("update not persisted: %#v", got)
	}

	// A failing callback aborts the update and its error is returned unchanged.
	errAbort := errors.New("abort")
	if _, err := repo.Update(ctx, aID, func(p *profilerepoport.Profile) error {
		p.FullName = "Nope"
		return errAbort
	}); !errors.Is(err, errAbort) {
		t.Fatalf("Update abort err=%v, want %v", err, errAbort)
	}
	if got, _ := repo.Get(ctx, aID); got.FullName != "Alice Smith" {
		t.Fatalf("aborted update was persisted: %q", got.FullName)
	}

	if _, err := repo.Update(ctx, domain.UserID(uuid.NewString()), func(*profilerepoport.Profile) error { return nil }); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("Update missing err=%v, want ErrNotFound", err)
	}

	// Concurrent updates of one record are serialized.
	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Update(ctx, bID, func(p *profilerepoport.Profile) error {
				p.AccessRequests = append(p.AccessRequests, fmt.Sprintf("requester-%d", i))
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Update: %v", err)
		}
	}
	got, err = repo.Get(ctx, bID)
	if err != nil {
		t.Fatalf("Get b: %v", err)
	}
	if len(got.AccessRequests) != writers {
		t.Fatalf("lost updates: accessRequests=%v", got.AccessRequests)
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	name := "Alice"
	aID := domain.UserID(uuid.NewString())
	aEmail := "alice-" + uuid.NewString() + "@example.com"
	if err := repo.Create(ctx, userrepoport.User{ID: aID, Email: aEmail, Name: &name, CreatedAt: now}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != aEmail || got.Name == nil || *got.Name != name || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected user: %#v", got)
	}
	if _, err := repo.GetByID(ctx, domain.UserID(uuid.NewString())); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID missing err=%v, want ErrNotFound", err)
	}

	if err := repo.Create(ctx, userrepoport.User{ID: aID, Email: "other-" + aEmail, CreatedAt: now}); !errors.Is(err, userrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate id err=%v, want ErrAlreadyExists", err)
	}

	// Email uniqueness is case-insensitive.
	if err := repo.Create(ctx, userrepoport.User{
		ID:        domain.UserID(uuid.NewString()),
		Email:     "ALICE-" + aEmail[len("alice-"):],
		CreatedAt: now,
	}); !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("Create duplicate email err=%v, want ErrEmailTaken", err)
	}

	bID := domain.UserID(uuid.NewString())
	if err := repo.Create(ctx, userrepoport.User{ID: bID, Email: "bob-" + uuid.NewString() + "@example.com", CreatedAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ai, bi := -1, -1
	for i, u := range list {
		switch u.ID {
		case aID:
			ai = i
		case bID:
			bi = i
			if u.Name != nil {
				t.Fatalf("expected nil name for b, got %q", *u.Name)
			}
		}
	}
	if ai < 0 || bi < 0 || ai > bi {
		t.Fatalf("unexpected ordering: a=%d b=%d", ai, bi)
	}
}

func indexOf(ps []profilerepoport.Profile, id domain.UserID) int {
	for i, p := range ps {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func assertJSONEqual(t *testing.T, field string, got, want json.RawMessage) {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("%s: stored value is not JSON: %v (%q)", field, err, string(got))
	}
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("%s: %v", field, err)
	}
	if diff := cmp.Diff(w, g); diff != "" {
		t.Fatalf("%s mismatch (-want +got):\n%s", field, diff)
	}
}

func boolPtr(v bool) *bool { return &v }
