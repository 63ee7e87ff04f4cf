package config

import (
    "strings"
    "time"

    log "github.com/sirupsen/logrus"
)

// Cache key strategies.  Each one keys on the concrete request path, so two
// tickets never share an entry.
const (
    CacheKeyRouteQuery      = "route_query"
    CacheKeyPath            = "path"
    CacheKeyMethodPathQuery = "method_path_query"
)

// CacheConfig defines settings for the response cache middleware placed in
// front of ticket metadata lookups.  Metadata is immutable once minted, so
// entries can live long; the TTL only bounds memory use.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  All methods are upper-cased.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 10*time.Minute),
        KeyStrategy:  cacheKeyStrategy(envStr("CACHE_KEY_STRATEGY", CacheKeyRouteQuery)),
        Prefix:       envStr("CACHE_PREFIX", "ticketcache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 64<<10),
    }
}

// cacheKeyStrategy falls back to route_query for unknown strategies,
// including "route": the route pattern alone would serve one ticket's
// metadata for every ticket.
func cacheKeyStrategy(s string) string {
    s = strings.ToLower(strings.TrimSpace(s))
    switch s {
    case CacheKeyRouteQuery, CacheKeyPath, CacheKeyMethodPathQuery:
        return s
    }
    log.Warnf("unsupported CACHE_KEY_STRATEGY %q, using %s", s, CacheKeyRouteQuery)
    return CacheKeyRouteQuery
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
