package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Namespace separates cached data classes so each can carry its own TTL.
type Namespace string

const (
	NamespaceResult       Namespace = "result"       // Full ScanResult by canonical URL
	NamespaceReachability Namespace = "reachability" // Probe outcome by hostname
	NamespaceIntel        Namespace = "ti"           // Per-source TI answers
	NamespaceWhois        Namespace = "whois"        // WHOIS records by domain
)

// Store is the cache port handed to the orchestrator and down to the
// components that need it. There is no ambient singleton; everything is
// injected.
type Store interface {
	Get(ns Namespace, key string) ([]byte, bool)
	Set(ns Namespace, key string, value []byte, ttl time.Duration) error
	Delete(ns Namespace, key string) error
	Clear() error
}

// Key hashes an identifier into a stable, namespaced cache key.
func Key(ns Namespace, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "sentra:v1:" + string(ns) + ":" + hex.EncodeToString(hash[:])
}

// Nop is a Store that caches nothing. Used when caching is disabled.
type Nop struct{}

func (Nop) Get(Namespace, string) ([]byte, bool)               { return nil, false }
func (Nop) Set(Namespace, string, []byte, time.Duration) error { return nil }
func (Nop) Delete(Namespace, string) error                     { return nil }
func (Nop) Clear() error                                       { return nil }
