package profilerepo

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/contracttest"
	profilerepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
)

func TestContract_RedisProfileRepo(t *testing.T) {
	mr := miniredis.RunT(t)

	contracttest.RunProfileRepo(t, func(t *testing.T) (profilerepoport.Repository, func()) {
		t.Helper()
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		return NewRepo(client, "test:"), func() { _ = client.Close() }
	})
}
