package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the token's role claim.
const (
	RoleModel      = "modelo"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleCron       = "cron"
)

const (
	principalKey     = "principal"
	CronSecretHeader = "X-Cron-Secret"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the caller may act on any model.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin || p.Role == RoleCron
}

// CanAccessModel reports whether the caller may read or write modelID.
func (p Principal) CanAccessModel(modelID string) bool {
	return p.IsAdmin() || p.UserID == modelID
}

// Claims is the payload of an access token issued by the auth provider.
type Claims struct {
	Role        string `json:"role"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

func (c *Claims) role() string {
	if c.AppMetadata.Role != "" {
		return c.AppMetadata.Role
	}
	return c.Role
}

// ParseToken validates an HS256 access token.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("subject not found in token")
	}
	return claims, nil
}

func bearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return strings.TrimSpace(token)
}

func secretMatches(provided, expected string) bool {
	return expected != "" && provided != "" &&
		subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func unauthorized(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// AuthConfig configures the auth middlewares.
type AuthConfig struct {
	JWTSecret  string
	CronSecret string
}

// Authenticate accepts a valid bearer token, or the cron secret in either
// the X-Cron-Secret header or as the bearer value.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.JWTSecret)
	return func(c *gin.Context) {
		if secretMatches(c.GetHeader(CronSecretHeader), cfg.CronSecret) ||
			secretMatches(bearer(c), cfg.CronSecret) {
			c.Set(principalKey, Principal{UserID: "cron", Role: RoleCron})
			c.Next()
			return
		}

		token := bearer(c)
		if token == "" {
			unauthorized(c, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if len(secret) == 0 {
			unauthorized(c, http.StatusUnauthorized, "token validation is not configured")
			return
		}
		claims, err := ParseToken(token, secret)
		if err != nil {
			unauthorized(c, http.StatusUnauthorized, "Invalid token: "+err.Error())
			return
		}

		c.Set(principalKey, Principal{UserID: claims.Subject, Role: claims.role()})
		c.Next()
	}
}

// RequireCron only lets the cron secret through.
func RequireCron(cronSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretMatches(c.GetHeader(CronSecretHeader), cronSecret) ||
			secretMatches(bearer(c), cronSecret) {
			c.Set(principalKey, Principal{UserID: "cron", Role: RoleCron})
			c.Next()
			return
		}
		unauthorized(c, http.StatusUnauthorized, "Unauthorized")
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := CurrentPrincipal(c); ok && p.IsAdmin() {
			c.Next()
			return
		}
		unauthorized(c, http.StatusForbidden, "admin role required")
	}
}

// CurrentPrincipal returns the caller set by Authenticate.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
