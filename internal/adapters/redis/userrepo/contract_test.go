package userrepo

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/contracttest"
	userrepoport "github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/userrepo"
)

func TestContract_RedisUserRepo(t *testing.T) {
	mr := miniredis.RunT(t)

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		return NewRepo(client, "test:"), func() { _ = client.Close() }
	})
}
