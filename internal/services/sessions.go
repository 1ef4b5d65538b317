package services

import (
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"gorm.io/gorm"
)

// RevokeSessions ends every refresh token of a principal. Access tokens expire
// on their own and are rejected sooner by principal resolution.
func RevokeSessions(db *gorm.DB, profileID uint) (int64, error) {
	result := db.Model(&models.RefreshToken{}).
		Where("profile_id = ? AND revoked_at IS NULL", profileID).
		Update("revoked_at", time.Now())
	return result.RowsAffected, result.Error
}
