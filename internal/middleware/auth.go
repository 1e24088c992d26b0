package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chamapool/internal/identity"
	"chamapool/internal/models"
)

// UserResolver maps a verified principal to an internal user record,
// creating it lazily on first sight.
type UserResolver interface {
	GetOrCreateBySubject(principal *identity.Principal) (*models.User, error)
}

// Authenticate verifies the bearer credential with the identity provider and
// resolves the internal user. Handlers read the user ID from the context and
// pass it explicitly into services; nothing below the handler layer touches
// request-scoped state.
func Authenticate(verifier identity.Verifier, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		principal, err := verifier.Verify(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired credential"})
			c.Abort()
			return
		}

		user, err := users.GetOrCreateBySubject(principal)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to resolve user"})
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("subject", principal.Subject)
		c.Next()
	}
}
