package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// AuthMiddleware guards a route group with bearer-token auth. With a
// non-nil repo it also checks the claim's token version against the
// user row, so logout and password changes revoke live tokens.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			reject(c, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			reject(c, "invalid token")
			return
		}

		if repo != nil && !versionCurrent(c, repo, claims) {
			reject(c, "invalid token")
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// bearerToken pulls the credential out of the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("Bearer "):]), true
}

func versionCurrent(c *gin.Context, repo *Repo, claims *Claims) bool {
	current, err := repo.GetTokenVersion(c.Request.Context(), claims.UserID)
	return err == nil && current == claims.TokenVersion
}

func reject(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}

// MustGetClaims returns the claims AuthMiddleware stored on the
// context, or nil when the route was not guarded.
func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
