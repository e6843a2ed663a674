package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client-chosen key for create requests.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set on responses served from a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey      = "idem.key"
	ctxKeyIdemScope    = "idem.scope"
	ctxKeyIdemResource = "idem.resource"
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyOptions configures header validation. TTL handling belongs to
// the lookup.
type IdempotencyOptions struct {
	// MaxLen caps the key length; <= 0 means 200.
	MaxLen int
	// Pattern restricts allowed characters; nil means ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
	// Now is used for expiry checks; nil means time.Now.
	Now func() time.Time
}

// IdempotencyLookup reports the resource created by an earlier, still valid
// request with the same (user, scope, key).
type IdempotencyLookup func(ctx context.Context, userID uint, scope, key string, now time.Time) (resourceID uint, found bool, err error)

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IdempotencyScope names the endpoint instance a key is bound to, e.g.
// "POST /api/v1/chats/7/messages".
func IdempotencyScope(c *gin.Context) string {
	if s := c.GetString(ctxKeyIdemScope); s != "" {
		return s
	}
	return c.Request.Method + " " + c.Request.URL.Path
}

// ReplayedResource returns the id of the resource a previous request with
// the same key produced. Handlers serve that resource instead of creating a
// new one.
func ReplayedResource(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxKeyIdemResource)
	if !ok {
		return 0, false
	}
	id, _ := v.(uint)
	return id, id != 0
}

// IsReplay reports whether ReplayedResource found a stored result.
func IsReplay(c *gin.Context) bool {
	_, ok := ReplayedResource(c)
	return ok
}

// IdempotencyValidator validates an optional Idempotency-Key header and,
// when lookup is set, marks the request as a replay of an earlier create.
// It must run after RequireAuth because keys are scoped per user.
//
// A malformed key is rejected with 400. Lookup failures are logged and the
// request proceeds as a first attempt; the unique index on stored keys keeps
// that safe.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			abortJSON(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		scope := c.Request.Method + " " + c.Request.URL.Path
		c.Set(ctxKeyIdemKey, key)
		c.Set(ctxKeyIdemScope, scope)

		if uid := UserID(c); lookup != nil && uid != 0 {
			id, found, err := lookup(c.Request.Context(), uid, scope, key, now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			case found:
				c.Set(ctxKeyIdemResource, id)
			}
		}
		c.Next()
	}
}
