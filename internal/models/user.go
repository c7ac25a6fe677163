package models

// User is the caller identity extracted from a backend-issued bearer token.
// Accounts themselves live in the backend; only the fields carried in the token appear here.
type User struct {
	ID    string
	Email string
	Name  string
}
