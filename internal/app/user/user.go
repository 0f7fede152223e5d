/*
Package user describes who a connection claims to be.

There are no accounts. A browser obtains a session (a random id plus a display name) from
POST /api/session and presents it as a signed token; anonymous connections only have the
display name they send with each join.
*/
package user

// User is the identity a connection joins rooms with.
type User struct {
	// SessionID is stable across reconnects of the same browser. Empty for anonymous connections.
	SessionID string `json:"sessionId,omitempty"`

	DisplayName string `json:"displayName"`
}

// IdentityKey returns the key a room roster de-duplicates on. With bySession set, the session
// id is used when there is one; otherwise the display name is.
func (u User) IdentityKey(bySession bool) string {
	if bySession && u.SessionID != "" {
		return "sid:" + u.SessionID
	}
	return "name:" + u.DisplayName
}
