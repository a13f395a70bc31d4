package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tripbuddy/internal/core/auth"
	"tripbuddy/internal/domain"
	resp "tripbuddy/internal/transport/http/response"
)

const keyIdentity = "identity"

func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.Fail(c, http.StatusUnauthorized, "missing token")
			c.Abort()
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.Fail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		if requireRole != "" && !claims.Roles.Has(requireRole) {
			resp.Fail(c, http.StatusForbidden, "forbidden")
			c.Abort()
			return
		}
		c.Set(keyIdentity, domain.Identity{ID: claims.UID, Roles: claims.Roles})
		c.Next()
	}
}

// IdentityFrom 取出 AuthJWT 写入的已认证身份
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(keyIdentity)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}
