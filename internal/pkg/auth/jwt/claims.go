package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set of a chat session token.
type Payload struct {
	jwt.StandardClaims `json:"standard_claims"`

	// SessionID is the stable identity of one browser session. It survives reconnects,
	// unlike connection ids.
	SessionID string `json:"sid"`

	// DisplayName is the name the session was issued for; join_room may still override it.
	DisplayName string `json:"name"`
}
