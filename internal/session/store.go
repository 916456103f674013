package session

// Store keeps session Data by browser session id. Implementations must be
// safe for concurrent use.
type Store interface {
	// Load returns a copy of the session. Mutating it has no effect on
	// the stored session.
	Load(id string) (*Data, bool)
	// Update runs fn against the session, creating it if needed, and
	// commits the result only when fn returns nil. Calls for the same
	// session are serialized.
	Update(id string, fn func(d *Data) error) error
	// Destroy drops the session.
	Destroy(id string)
}
