package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/idempotency"
	memprofilerepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/profilerepo"
	memuserrepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres/idempotency"
	pgprofilerepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres/profilerepo"
	postgres_testutil "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres/userrepo"
	redisidempotency "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis/idempotency"
	redisprofilerepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis/profilerepo"
	redisuserrepo "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/redis/userrepo"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/profiles"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/users"
	idempotencyport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/idempotency"
	profilerepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
	userrepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
	backendRedis    backend = "redis"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "redis":
		return []backend{backendRedis}
	case "all":
		return []backend{backendMemory, backendRedis, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|redis|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		profileRepo profilerepoport.Repository
		userRepo    userrepoport.Repository
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		profileRepo = pgprofilerepo.NewRepo(pool)
		userRepo = pguserrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendRedis:
		mr := miniredis.RunT(t)
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		profileRepo = redisprofilerepo.NewRepo(client, "itest:")
		userRepo = redisuserrepo.NewRepo(client, "itest:")
		idemStore = redisidempotency.NewStore(client, "itest:", time.Hour)
	case backendMemory:
		profileRepo = memprofilerepo.NewRepo()
		userRepo = memuserrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	log := zaptest.NewLogger(t)
	profileSvc := profiles.NewService(profileRepo, clk, log)
	userSvc := users.NewService(userRepo, profileSvc, clk, log)
	api := httpapi.NewServer(profileSvc, userSvc, idemStore, log)

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: log})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

// uniqueSubject returns a subject that does not collide with earlier runs
// against a shared database.
func uniqueSubject(name string) string {
	return "itest-" + name + "-" + uuid.NewString()
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
