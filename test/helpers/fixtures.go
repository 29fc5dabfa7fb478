package helpers

import (
	"testing"

	"crmchat_backend/internal/auth"
	"crmchat_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateUser inserts a user row and returns it with a signed token, ready to
// act as an authenticated chat participant.
func CreateUser(t *testing.T, db *gorm.DB, username string) (*models.User, string) {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
	}
	user.ID = uuid.New().String()

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		t.Fatalf("failed to sign token for %s: %v", username, err)
	}
	return user, token
}
