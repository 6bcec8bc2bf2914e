package cache

import (
	"testing"
	"time"
)

func TestMemoryStore_NamespaceIsolation(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)

	if err := store.Set(NamespaceResult, "example.com", []byte("result"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(NamespaceReachability, "example.com", []byte("probe"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, found := store.Get(NamespaceResult, "example.com")
	if !found || string(got) != "result" {
		t.Errorf("result namespace: got %q found=%v", got, found)
	}
	got, found = store.Get(NamespaceReachability, "example.com")
	if !found || string(got) != "probe" {
		t.Errorf("reachability namespace: got %q found=%v", got, found)
	}
	if _, found := store.Get(NamespaceWhois, "example.com"); found {
		t.Error("whois namespace should be empty")
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute, time.Minute)
	_ = store.Set(NamespaceIntel, "k", []byte("v"), 10*time.Millisecond)

	time.Sleep(25 * time.Millisecond)
	if _, found := store.Get(NamespaceIntel, "k"); found {
		t.Error("entry should have expired")
	}
}

func TestDiskStore_RoundTrip(t *testing.T) {
	store := NewDiskStore(t.TempDir(), time.Minute)

	if err := store.Set(NamespaceWhois, "example.com", []byte("whois-record"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, found := store.Get(NamespaceWhois, "example.com")
	if !found || string(got) != "whois-record" {
		t.Errorf("got %q found=%v", got, found)
	}

	if err := store.Delete(NamespaceWhois, "example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found := store.Get(NamespaceWhois, "example.com"); found {
		t.Error("deleted entry still present")
	}
}

func TestDiskStore_Expired(t *testing.T) {
	store := NewDiskStore(t.TempDir(), time.Minute)
	_ = store.Set(NamespaceWhois, "k", []byte("v"), -time.Second)

	if _, found := store.Get(NamespaceWhois, "k"); found {
		t.Error("expired entry should miss")
	}
}

func TestLayeredStore_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	layered := NewLayeredStore(time.Minute, dir, time.Minute)

	// Write through the disk layer only, simulating a prior run.
	disk := NewDiskStore(dir, time.Minute)
	_ = disk.Set(NamespaceResult, "k", []byte("persisted"), time.Minute)

	got, found := layered.Get(NamespaceResult, "k")
	if !found || string(got) != "persisted" {
		t.Fatalf("layered get: %q found=%v", got, found)
	}

	// After promotion the memory layer serves the hit directly.
	got, found = layered.memory.Get(NamespaceResult, "k")
	if !found || string(got) != "persisted" {
		t.Errorf("memory layer after promotion: %q found=%v", got, found)
	}
}

func TestNopStore(t *testing.T) {
	var store Store = Nop{}
	_ = store.Set(NamespaceResult, "k", []byte("v"), time.Minute)
	if _, found := store.Get(NamespaceResult, "k"); found {
		t.Error("nop store should never hit")
	}
}
