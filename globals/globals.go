package globals

var (
	// JwtSecret signs and verifies admin tokens. Set from config at startup.
	JwtSecret = []byte("")
)

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
