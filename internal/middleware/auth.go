package middleware

import (
	"net/http"
	"strings"

	"ideahub/internal/auth"
	"ideahub/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	accessTokenCookie = "access_token"
	sessionKey        = "session"
)

// Auth gates routes on the session carried by the access token. It never
// touches storage: everything it needs is in the token claims.
type Auth struct {
	tokens *auth.TokenManager
	secure bool
}

// NewAuth builds the gate. secure switches cookies to SameSite=None + Secure for cross-origin deployments.
func NewAuth(tokens *auth.TokenManager, secure bool) *Auth {
	return &Auth{tokens: tokens, secure: secure}
}

// SetTokenCookies sets access_token as an HttpOnly cookie
func (a *Auth) SetTokenCookies(c *gin.Context, accessToken string) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(accessTokenCookie, accessToken, int(a.tokens.TTL().Seconds()), "/", "", a.secure, true)
}

// ClearTokenCookies removes the access_token cookie
func (a *Auth) ClearTokenCookies(c *gin.Context) {
	c.SetSameSite(a.sameSite())
	c.SetCookie(accessTokenCookie, "", -1, "/", "", a.secure, true)
}

func (a *Auth) sameSite() http.SameSite {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	if a.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// RequireAuth accepts any valid session
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return a.RequireRole()
}

// RequireRole validates the token and checks the session role against allowedRoles.
// With no roles every authenticated session passes.
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie(accessTokenCookie)
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		session, err := a.tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		if len(allowedRoles) > 0 && !session.HasRole(allowedRoles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(sessionKey, session)
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// SessionFrom returns the session set by RequireRole, or the zero session
func SessionFrom(c *gin.Context) auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(auth.Session); ok {
			return s
		}
	}
	s, _ := auth.FromContext(c.Request.Context())
	return s
}
