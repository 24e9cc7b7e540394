package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewClient() err=%v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := NewClient(context.Background(), "http://"+mr.Addr()); err == nil {
		t.Fatalf("NewClient(http://) err=nil, want parse error")
	}
}

func TestWatch_ReturnsCallbackError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	errBoom := errors.New("boom")
	calls := 0
	err := Watch(context.Background(), client, func(tx *goredis.Tx) error {
		calls++
		return errBoom
	}, "k")
	if !errors.Is(err, errBoom) || calls != 1 {
		t.Fatalf("Watch() err=%v calls=%d, want %v after 1 call", err, calls, errBoom)
	}
}
