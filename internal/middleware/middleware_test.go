package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-registry/internal/config"
	"github.com/iliyamo/event-ticket-registry/internal/model"
	"github.com/iliyamo/event-ticket-registry/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth("secret"), RequireRole(model.RoleHolder, model.RoleAdmin))
	g.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, string(AccountID(c))+"/"+Role(c))
	})

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "garbage").Code)

	holder, err := utils.NewAccessToken("secret", "7", model.RoleHolder, 5)
	require.NoError(t, err)
	rec := serve(e, http.MethodGet, "/me", holder.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7/HOLDER", rec.Body.String())

	stranger, err := utils.NewAccessToken("secret", "8", "AUDITOR", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/me", stranger.Token).Code)

	forged, err := utils.NewAccessToken("other", "7", model.RoleAdmin, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", forged.Token).Code)
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/tickets", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, rdb))

	first := serve(e, http.MethodPost, "/tickets", "")
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/tickets", "").Code)

	blocked := serve(e, http.MethodPost, "/tickets", "")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour, Prefix: "rl"}
	e := echo.New()
	e.POST("/tickets", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, rdb))

	mr.Close()
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/tickets", "").Code)
	assert.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/tickets", "").Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/tickets/3/redeem", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/tickets/:id/redeem")
	c.Set(CtxAccountID, "7")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "account_route"}
	assert.Equal(t, "rl:acct:7:route:POST /v1/tickets/:id/redeem", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_account_route"
	assert.Equal(t, "rl:ip:10.0.0.1:acct:7:route:POST /v1/tickets/:id/redeem", buildRateKey(cfg, c))
}

func TestRedisCache(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
	calls := 0
	e := echo.New()
	e.GET("/tickets/:id/metadata", func(c echo.Context) error {
		calls++
		if c.Param("id") == "404" {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown ticket"})
		}
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "metadata_uri": "ipfs://" + c.Param("id")})
	}, NewRedisCache(cfg, rdb))

	miss := serve(e, http.MethodGet, "/tickets/1/metadata", "")
	assert.Equal(t, http.StatusOK, miss.Code)
	assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))

	hit := serve(e, http.MethodGet, "/tickets/1/metadata", "")
	assert.Equal(t, http.StatusOK, hit.Code)
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, miss.Body.String(), hit.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, hit.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)

	serve(e, http.MethodGet, "/tickets/2/metadata", "")
	assert.Equal(t, 2, calls)

	serve(e, http.MethodGet, "/tickets/404/metadata", "")
	again := serve(e, http.MethodGet, "/tickets/404/metadata", "")
	assert.Equal(t, http.StatusNotFound, again.Code)
	assert.Equal(t, 4, calls)
}

func TestCacheKeyDistinguishesTickets(t *testing.T) {
	e := echo.New()
	keyFor := func(strategy, path string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		c.SetPath("/v1/tickets/:id/metadata")
		return cacheKeyFrom(config.CacheConfig{Prefix: "cache", KeyStrategy: strategy}, c)
	}
	for _, strategy := range []string{"route", "route_query", "path", "method_path_query", ""} {
		assert.NotEqual(t,
			keyFor(strategy, "/v1/tickets/1/metadata"),
			keyFor(strategy, "/v1/tickets/2/metadata"), strategy)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}
