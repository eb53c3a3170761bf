package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "scl90-gate context key " + string(c)
}

// RequestIDKey is the key for the per-request id set by the request id middleware
const RequestIDKey = contextKey("requestID")

// ComponentKey is the key for the component name used in logs
const ComponentKey = contextKey("component")

// OperationKey is the key for the current operation name used in logs
const OperationKey = contextKey("operation")

// AdminSubjectKey is the key for the authenticated admin subject ("secret" or the token subject)
const AdminSubjectKey = contextKey("adminSubject")
