package entity

// SessionClaims is the participant identity carried by the backend session
// token. The core never verifies the signature; the backend does that on
// every call the token accompanies.
type SessionClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}
