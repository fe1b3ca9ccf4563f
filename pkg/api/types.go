package api

import "time"

// Role names granted to accounts. Registration grants RoleUser; RoleAdmin
// is assigned out of band.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is a registered account. The password hash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// LegalDoc is a legal document (law, decree, resolution) indexed by the backend.
type LegalDoc struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	// Date is the publication date in YYYY-MM-DD form, empty when unknown.
	Date       string    `json:"date,omitempty"`
	Source     string    `json:"source,omitempty"`
	ExternalID string    `json:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatHistory is one question/answer exchange owned by a user.
type ChatHistory struct {
	ID        int64     `json:"id"`
	UserEmail string    `json:"user_email"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is the request body of both register and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the sole artifact of a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// LoginFailure is the body returned on rejected credentials. It never says
// which of email or password was wrong.
type LoginFailure struct {
	Error string `json:"error"`
}

// MessageResponse carries a short human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateChatRequest is the body of POST /api/chat. The owner is always the
// authenticated caller, so no user field is accepted.
type CreateChatRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Principal describes the security context of the current request.
type Principal struct {
	Authenticated bool     `json:"authenticated"`
	Email         string   `json:"email,omitempty"`
	Roles         []string `json:"roles,omitempty"`
}
