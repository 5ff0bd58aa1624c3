package types

// GoogleUser - claims carried by the Google identity credential
type GoogleUser struct {
	ID            string `json:"sub"`            // Unique Google ID
	Email         string `json:"email"`          // User's email address
	EmailVerified bool   `json:"email_verified"` // Whether email is verified
	Name          string `json:"name"`           // Full name
	Picture       string `json:"picture"`        // Profile picture URL
	Exp           int64  `json:"exp"`            // Token expiry, Unix seconds
}
