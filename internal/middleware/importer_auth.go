package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"treasury/internal/authz"
	apperrors "treasury/internal/errors"
	"treasury/internal/models"
)

// ImporterAuth validates the X-API-Key header against the bcrypt hash of the
// importer key. Accepted requests act as the system treasurer.
func ImporterAuth(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			abortWithError(c, apperrors.ErrImporterDisabled)
			return
		}
		key := c.GetHeader("X-API-Key")
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Set(ActorKey, authz.System(models.RoleTreasurer))
		c.Next()
	}
}
