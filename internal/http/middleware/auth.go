package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-places-market/internal/auth"
	"github.com/tbourn/go-places-market/internal/domain"
	"github.com/tbourn/go-places-market/internal/services"
)

const (
	userIDKey = "userID"
	userKey   = "user"
	claimsKey = "claims"
)

var (
	errNoToken     = errors.New("missing bearer token")
	errRevoked     = errors.New("session revoked")
	errUnknownUser = errors.New("token subject no longer exists")
)

// UserLoader resolves the subject of a verified token.
type UserLoader func(ctx context.Context, id uint) (*domain.User, error)

// Authenticator turns an "Authorization: Bearer <jwt>" header into the
// acting user. Tokens are verified with Tokens, checked against the
// revocation list in Sessions and their subject is reloaded through
// LoadUser so that deleted accounts and demoted admins take effect
// immediately.
type Authenticator struct {
	Tokens   auth.Config
	Sessions auth.SessionStore
	LoadUser UserLoader
}

// RequireAuth rejects requests without a valid session with 401.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, claims, err := a.resolve(c)
		if err != nil {
			if isAuthFailure(err) {
				abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			LoggerFrom(c).Error().Err(err).Msg("resolve session")
			abortJSON(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		a.attach(c, u, claims)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets the
// request continue anonymously otherwise.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, claims, err := a.resolve(c)
		switch {
		case err == nil:
			a.attach(c, u, claims)
		case !isAuthFailure(err):
			LoggerFrom(c).Warn().Err(err).Msg("optional session lookup failed")
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !u.IsAdmin {
			abortJSON(c, http.StatusForbidden, "forbidden", "administrator access required")
			return
		}
		c.Next()
	}
}

func (a *Authenticator) resolve(c *gin.Context) (*domain.User, *auth.Claims, error) {
	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return nil, nil, errNoToken
	}
	claims, err := auth.Parse(a.Tokens, raw)
	if err != nil {
		return nil, nil, err
	}
	ctx := c.Request.Context()
	if a.Sessions != nil {
		revoked, err := a.Sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, nil, err
		}
		if revoked {
			return nil, nil, errRevoked
		}
	}
	u, err := a.LoadUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil, errUnknownUser
		}
		return nil, nil, err
	}
	return u, claims, nil
}

func (a *Authenticator) attach(c *gin.Context, u *domain.User, claims *auth.Claims) {
	c.Set(userIDKey, u.ID)
	c.Set(userKey, u)
	c.Set(claimsKey, claims)

	scoped := LoggerFrom(c).With().Uint("user_id", u.ID).Logger()
	c.Set(loggerKey, &scoped)
}

func isAuthFailure(err error) bool {
	return errors.Is(err, errNoToken) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, errRevoked) ||
		errors.Is(err, errUnknownUser)
}

func bearerToken(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

// UserID returns the authenticated user's id, 0 for anonymous requests.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(userIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}

// CurrentClaims returns the verified token claims or nil.
func CurrentClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if cl, ok := v.(*auth.Claims); ok {
			return cl
		}
	}
	return nil
}
