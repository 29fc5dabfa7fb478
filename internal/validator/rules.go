package validator

import (
	modelChat "crmchat_backend/internal/models/chat"

	"github.com/go-playground/validator/v10"
)

// registerChatRules wires the enum validators used by the chat DTOs.
func registerChatRules(v *validator.Validate) {
	_ = v.RegisterValidation("room_kind", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case modelChat.RoomKindCommunity, modelChat.RoomKindPrivate, modelChat.RoomKindGroup:
			return true
		}
		return false
	})

	_ = v.RegisterValidation("member_role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case modelChat.RoleAdmin, modelChat.RoleModerator, modelChat.RoleMember:
			return true
		}
		return false
	})

	_ = v.RegisterValidation("message_kind", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case modelChat.MessageKindText, modelChat.MessageKindImage,
			modelChat.MessageKindFile, modelChat.MessageKindSystem:
			return true
		}
		return false
	})
}
