package contextkeys

// Keys under which the auth middleware stores the verified identity.
const (
	UserIDKey   = "userID"
	UsernameKey = "username"
)
