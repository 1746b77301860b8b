package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewClientSuccess(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	ctx := context.Background()
	client, err := NewClient(ctx, Config{URL: fmt.Sprintf("redis://%s", s.Addr())})
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	defer client.Close()

	if err := client.Set(ctx, "proxy:dfsp9", "proxy-ab", 0).Err(); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if got, _ := s.Get("proxy:dfsp9"); got != "proxy-ab" {
		t.Fatalf("expected value stored in server, got %q", got)
	}
}

func TestNewClientPassword(t *testing.T) {
	s := miniredis.RunT(t)
	s.RequireAuth("secret")

	client, err := NewClient(context.Background(), Config{URL: fmt.Sprintf("redis://%s", s.Addr()), Password: "secret"})
	if err != nil {
		t.Fatalf("expected authenticated client, got error: %v", err)
	}
	client.Close()

	if _, err := NewClient(context.Background(), Config{URL: fmt.Sprintf("redis://%s", s.Addr())}); err == nil {
		t.Fatalf("expected auth failure without password")
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{URL: "://bad-url"})
	if err == nil {
		t.Fatalf("expected error for invalid URL")
	}
}

func TestNewClientPingFailure(t *testing.T) {
	s := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s", s.Addr())
	s.Close() // close before attempting to connect

	_, err := NewClient(context.Background(), Config{URL: url})
	if err == nil {
		t.Fatalf("expected ping error when server is down")
	}
}
