package handlers

// AppHandlers aggregates the constructed HTTP handlers for route wiring.
type AppHandlers struct {
	ChatHandler *ChatHandler
}

func NewAppHandlers(chatHandler *ChatHandler) *AppHandlers {
	return &AppHandlers{ChatHandler: chatHandler}
}
