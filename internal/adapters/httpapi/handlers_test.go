package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memclock "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/profilerepo"
	memuserrepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/userrepo"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/profiles"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/users"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	clk := memclock.NewManualClock(time.Unix(100, 0).UTC())
	profileSvc := profiles.NewService(memprofilerepo.NewRepo(), clk, zap.NewNop())
	userSvc := users.NewService(memuserrepo.NewRepo(), profileSvc, clk, zap.NewNop())
	return NewServer(profileSvc, userSvc, memidempotency.NewStore(), zap.NewNop())
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(newTestServer(t), RouterOptions{AuthMiddleware: NewDevAuthMiddleware("")})
}

func do(t *testing.T, h http.Handler, method, path, sub, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if sub != "" {
		req.Header.Set("X-Debug-Subject", sub)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// profileFields decodes the "profile" object of a response into a generic map so
// tests can assert on which keys are present.
func profileFields(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Profile map[string]any `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.NotNil(t, env.Profile, rec.Body.String())
	return env.Profile
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}

const aliceProfile = `{
	"fullName": "Alice Smith",
	"email": "alice@example.com",
	"phone": "+1 555 0100",
	"professionalSummary": "Backend engineer",
	"availability": "open",
	"skills": [{"title": "Go", "skills": [{"skill": "chi"}, {"skill": "  "}]}, {"title": ""}],
	"accessLevel": "private",
	"showEmail": false
}`

func TestProfiles_PrivacyWorkflow(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/profiles", "alice", aliceProfile)
	requireStatus(t, rec, http.StatusCreated)
	owner := profileFields(t, rec)
	assert.Equal(t, "alice", owner["id"])
	assert.Equal(t, "alice@example.com", owner["email"])
	assert.Contains(t, owner, "show")
	assert.Len(t, owner["skills"], 1)

	// Unauthorized viewers only learn the id and access level.
	rec = do(t, h, http.MethodGet, "/profiles/alice", "bob", "")
	requireStatus(t, rec, http.StatusOK)
	hidden := profileFields(t, rec)
	assert.Equal(t, "private", hidden["accessLevel"])
	for _, k := range []string{"fullName", "email", "phone", "professionalSummary", "availability", "skills", "show"} {
		assert.NotContains(t, hidden, k)
	}

	rec = do(t, h, http.MethodPost, "/profiles/alice/access-requests", "bob", "")
	requireStatus(t, rec, http.StatusNoContent)

	rec = do(t, h, http.MethodGet, "/profiles/me", "alice", "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, []any{"bob"}, profileFields(t, rec)["accessRequests"])

	// Only the owner decides.
	rec = do(t, h, http.MethodPut, "/profiles/alice/access-requests/bob", "bob", `{"grant":true}`)
	requireStatus(t, rec, http.StatusForbidden)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodPut, "/profiles/alice/access-requests/bob", "alice", `{"grant":true}`)
	requireStatus(t, rec, http.StatusNoContent)

	rec = do(t, h, http.MethodGet, "/profiles/alice", "bob", "")
	requireStatus(t, rec, http.StatusOK)
	granted := profileFields(t, rec)
	assert.Equal(t, "Alice Smith", granted["fullName"])
	assert.Equal(t, "+1 555 0100", granted["phone"])
	assert.Equal(t, "open", granted["availability"])
	assert.NotContains(t, granted, "email")
	assert.NotContains(t, granted, "show")
	assert.Equal(t, []any{"bob"}, granted["permittedUsers"])
	assert.Equal(t, []any{}, granted["accessRequests"])
}

func TestProfiles_CreateErrors(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/profiles", "alice", `{"fullName":"","email":"alice@example.com","professionalSummary":"x"}`)
	requireStatus(t, rec, http.StatusUnprocessableEntity)
	assert.Equal(t, profiles.CodeValidation, decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodPost, "/profiles", "alice", `{"fullName":"Alice","email":"alice@example.com","professionalSummary":"x","accessLevel":"secret"}`)
	requireStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPost, "/profiles", "alice", `{"fullName":"Alice","email":"alice@example.com","professionalSummary":"x"}`)
	requireStatus(t, rec, http.StatusCreated)

	rec = do(t, h, http.MethodPost, "/profiles", "alice", `{"fullName":"Alice","email":"alice@example.com","professionalSummary":"x"}`)
	requireStatus(t, rec, http.StatusConflict)
	assert.Equal(t, profiles.CodeAlreadyExists, decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodGet, "/profiles/nobody", "alice", "")
	requireStatus(t, rec, http.StatusNotFound)
	assert.Equal(t, profiles.CodeNotFound, decodeError(t, rec).Error.Code)
}

func TestProfiles_UpdateMyProfile_TriState(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	requireStatus(t, do(t, h, http.MethodPost, "/profiles", "alice", aliceProfile), http.StatusCreated)

	// phone null clears; omitted fields are unchanged.
	rec := do(t, h, http.MethodPatch, "/profiles/me", "alice", `{"phone":null,"linkedin":"https://linkedin.example/alice"}`)
	requireStatus(t, rec, http.StatusOK)
	p := profileFields(t, rec)
	assert.Nil(t, p["phone"])
	assert.Contains(t, p, "phone")
	assert.Equal(t, "https://linkedin.example/alice", p["linkedin"])
	assert.Equal(t, "Alice Smith", p["fullName"])

	rec = do(t, h, http.MethodPatch, "/profiles/me", "alice", `{"fullName":null}`)
	requireStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPatch, "/profiles/me", "nobody", `{"fullName":"X"}`)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestProfiles_UpdateSettings(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	requireStatus(t, do(t, h, http.MethodPost, "/profiles", "alice", aliceProfile), http.StatusCreated)

	rec := do(t, h, http.MethodPatch, "/profiles/me/settings", "alice", `{"visibility":"public","showName":false,"permittedUsers":["bob"," ",7]}`)
	requireStatus(t, rec, http.StatusOK)
	var env SettingsEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "public", env.Settings.Visibility)
	assert.False(t, env.Settings.ShowName)
	assert.False(t, env.Settings.ShowEmail)
	assert.True(t, env.Settings.ShowPhone)
	assert.Equal(t, []string{"bob"}, env.Settings.PermittedUsers)

	rec = do(t, h, http.MethodGet, "/profiles/alice", "carol", "")
	requireStatus(t, rec, http.StatusOK)
	p := profileFields(t, rec)
	assert.NotContains(t, p, "fullName")
	assert.Equal(t, "Backend engineer", p["professionalSummary"])

	rec = do(t, h, http.MethodPatch, "/profiles/me/settings", "alice", `{"visibility":"hidden"}`)
	requireStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestProfiles_ListAndBatch(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	requireStatus(t, do(t, h, http.MethodPost, "/profiles", "alice", aliceProfile), http.StatusCreated)
	requireStatus(t, do(t, h, http.MethodPost, "/profiles", "bob", `{"fullName":"Bob","email":"bob@example.com","professionalSummary":"PM"}`), http.StatusCreated)

	rec := do(t, h, http.MethodGet, "/profiles", "carol", "")
	requireStatus(t, rec, http.StatusOK)
	var list struct {
		Profiles []map[string]any `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Profiles, 2)

	rec = do(t, h, http.MethodGet, "/profiles?ids=bob,missing,alice", "carol", "")
	requireStatus(t, rec, http.StatusOK)
	list.Profiles = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Profiles, 2)
	assert.Equal(t, "bob", list.Profiles[0]["id"])
	assert.Equal(t, "Bob", list.Profiles[0]["fullName"])
	assert.Equal(t, "alice", list.Profiles[1]["id"])
	assert.NotContains(t, list.Profiles[1], "fullName")
}

func TestProfiles_DecideAccess_RequiresGrant(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	requireStatus(t, do(t, h, http.MethodPost, "/profiles", "alice", aliceProfile), http.StatusCreated)

	rec := do(t, h, http.MethodPut, "/profiles/alice/access-requests/bob", "alice", `{}`)
	requireStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodPut, "/profiles/missing/access-requests/bob", "alice", `{"grant":false}`)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestProfiles_IdempotentPatch(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	requireStatus(t, do(t, h, http.MethodPost, "/profiles", "alice", aliceProfile), http.StatusCreated)

	body := `{"professionalSummary":"Staff engineer"}`
	first := do(t, h, http.MethodPatch, "/profiles/me", "alice", body, "Idempotency-Key", "k1")
	requireStatus(t, first, http.StatusOK)

	// A later write must not leak into the replayed response.
	requireStatus(t, do(t, h, http.MethodPatch, "/profiles/me", "alice", `{"fullName":"Alice Jones"}`), http.StatusOK)

	replay := do(t, h, http.MethodPatch, "/profiles/me", "alice", body, "Idempotency-Key", "k1")
	requireStatus(t, replay, http.StatusOK)
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	reuse := do(t, h, http.MethodPatch, "/profiles/me", "alice", `{"professionalSummary":"Other"}`, "Idempotency-Key", "k1")
	requireStatus(t, reuse, http.StatusConflict)
	assert.Equal(t, "IDEMPOTENCY_KEY_REUSE", decodeError(t, reuse).Error.Code)

	// Keys are scoped to the route.
	rec := do(t, h, http.MethodPatch, "/profiles/me/settings", "alice", `{"showPhone":false}`, "Idempotency-Key", "k1")
	requireStatus(t, rec, http.StatusOK)
}

func TestUsers_Endpoints(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/users", "admin", `{"email":"alice@example.com","name":"Alice"}`)
	requireStatus(t, rec, http.StatusCreated)
	var created struct {
		User UserResponse `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.User.ID)
	assert.Equal(t, "alice@example.com", created.User.Email)

	rec = do(t, h, http.MethodPost, "/users", "admin", `{"email":"ALICE@example.com"}`)
	requireStatus(t, rec, http.StatusConflict)
	assert.Equal(t, "USER_ALREADY_EXISTS", decodeError(t, rec).Error.Code)

	rec = do(t, h, http.MethodPost, "/users", "admin", `{"email":"not-an-email"}`)
	requireStatus(t, rec, http.StatusUnprocessableEntity)

	rec = do(t, h, http.MethodGet, "/users", "admin", "")
	requireStatus(t, rec, http.StatusOK)
	var list struct {
		Users []UserResponse `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Users, 1)

	rec = do(t, h, http.MethodPost, "/users/lookup", "admin", `{"userIds":["`+created.User.ID+`","missing"]}`)
	requireStatus(t, rec, http.StatusOK)
	var lookup struct {
		Users []map[string]any `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lookup))
	require.Len(t, lookup.Users, 1)
	assert.Equal(t, created.User.ID, lookup.Users[0]["id"])
	assert.Equal(t, "Alice", lookup.Users[0]["fullName"])
}
