package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"checkin/utils"
)

// UserIDKey is where Authenticate leaves the caller's account id.
const UserIDKey = "userId"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

var _ TokenVerifier = (*utils.TokenSigner)(nil)

// Authenticate accepts "Authorization: Bearer <jwt>" or the bare token.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Request.Header.Get("Authorization"))
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}

		userID, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
