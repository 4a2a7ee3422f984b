package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "fitness-gateway context key " + string(c)
}

// SessionIDKey is the key for the session ID in context.Context
const SessionIDKey = contextKey("sessionID")

// UserIDKey is the key for the authenticated user ID in context.Context
const UserIDKey = contextKey("userID")

// RequestIDKey is the key for the request ID in context.Context
const RequestIDKey = contextKey("requestID")

// ComponentKey is the key for the emitting component in context.Context
const ComponentKey = contextKey("component")

// OperationKey is the key for the running operation in context.Context
const OperationKey = contextKey("operation")
