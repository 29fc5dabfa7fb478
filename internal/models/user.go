package models

// User is the minimal identity row the chat core needs: usernames for wire
// events and member listings. Account lifecycle (passwords, verification)
// belongs to the external auth service.
type User struct {
	BaseModel
	Username string `gorm:"uniqueIndex;not null"`
	Email    string `gorm:"uniqueIndex;not null"`
}
