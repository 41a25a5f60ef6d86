package redisstore

import (
	"bytes"
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	s, err := New(ctx, mr.Addr(), zerolog.Nop(), 300*time.Second, 250*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSetGet_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	s.Set("k", []byte("v"), time.Minute)
	got, ok := s.Get("k")
	if !ok || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get = (%q, %v), want (v, true)", got, ok)
	}
}

func TestGet_MissingKeyIsMiss(t *testing.T) {
	s, _ := newTestStore(t)
	if _, ok := s.Get("absent"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestTTL_ExpiryEvicts(t *testing.T) {
	s, mr := newTestStore(t)
	s.Set("k", []byte("v"), 2*time.Second)

	if _, ok := s.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	mr.FastForward(3 * time.Second)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected miss after TTL expiry")
	}
}

func TestSet_DefaultTTLApplied(t *testing.T) {
	s, mr := newTestStore(t)
	s.Set("k", []byte("v"), 0)

	ttl := mr.TTL("k")
	if ttl <= 0 || ttl > 300*time.Second {
		t.Fatalf("ttl = %v, want (0, 300s]", ttl)
	}
}

func TestDel_RemovesKeys(t *testing.T) {
	s, _ := newTestStore(t)
	s.Set("k1", []byte("a"), time.Minute)
	s.Set("k2", []byte("b"), time.Minute)
	s.Del("k1", "k2")
	if _, ok := s.Get("k1"); ok {
		t.Fatal("k1 survived Del")
	}
	if _, ok := s.Get("k2"); ok {
		t.Fatal("k2 survived Del")
	}
}

func TestGet_ServerDownDegradesToMiss(t *testing.T) {
	s, mr := newTestStore(t)
	s.Set("k", []byte("v"), time.Minute)
	mr.Close()
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
}
