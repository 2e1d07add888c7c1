package contextkeys

type contextKey string

const (
	UserIDKey    contextKey = "UserID"
	ActorRoleKey contextKey = "ActorRole"
)
