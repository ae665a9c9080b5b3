package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPutGet(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := Key("int main(void){return 0;}", "amd64_sysv", "-std=c11")
	want := &Entry{Source: "main.c", Target: "amd64_sysv", IR: "export function w $main() {}", Asm: []byte(".text\n")}
	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v), want a hit", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
}

func TestMissAndClear(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok, err := c.Get(Key("absent")); ok || err != nil {
		t.Fatalf("Get on empty cache = (%v, %v), want a clean miss", ok, err)
	}

	key := Key("x")
	if err := c.Put(key, &Entry{IR: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := c.Get(key); ok {
		t.Error("entry survived Clear")
	}
}

func TestCorruptEntryIsAnError(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	key := Key("y")
	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte{0xc1}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(key); ok || err == nil {
		t.Errorf("Get on corrupt entry = (%v, %v), want an error", ok, err)
	}
}

func TestKeyIsUnambiguous(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key does not separate its parts")
	}
	if Key("a") != Key("a") {
		t.Error("Key is not deterministic")
	}
}

func TestNilCacheNeverHits(t *testing.T) {
	var c *Cache
	if err := c.Put(1, &Entry{}); err != nil {
		t.Errorf("Put on nil cache: %v", err)
	}
	if _, ok, err := c.Get(1); ok || err != nil {
		t.Errorf("Get on nil cache = (%v, %v)", ok, err)
	}
}
