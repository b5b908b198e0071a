package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxRegistrarClaims = "registrar_claims"

// RequireRegistrar returns a Gin middleware that enforces a valid registrar
// Bearer token. With a nil issuer every request passes.
//
// On success it injects the *RegistrarClaims into the context under the
// "registrar_claims" key.
func RequireRegistrar(tokens *RegistrarTokenIssuer) gin.HandlerFunc {
	if tokens == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer registrar token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid registrar token: " + err.Error(),
			})
			return
		}

		c.Set(ctxRegistrarClaims, claims)
		c.Next()
	}
}

// RegistrarFromCtx retrieves the claims injected by RequireRegistrar, or nil.
func RegistrarFromCtx(c *gin.Context) *RegistrarClaims {
	v, _ := c.Get(ctxRegistrarClaims)
	claims, _ := v.(*RegistrarClaims)
	return claims
}
