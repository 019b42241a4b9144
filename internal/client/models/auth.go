package models

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "user"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Credentials is the access/refresh token pair.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

type AuthStatus string

const (
	AuthIdle            AuthStatus = "idle"
	AuthLoading         AuthStatus = "loading"
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
)

// AuthSession is the client's view of who is logged in. SessionChecked is a
// one-way latch set once the startup bootstrap has finished.
type AuthSession struct {
	Credentials    Credentials
	User           *User
	Status         AuthStatus
	SessionChecked bool
	Error          string
}
