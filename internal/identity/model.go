package identity

import "strings"

// User is the host-provided identity of the person running the Mini App.
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
}

// DevUser is used when the app is opened outside Telegram with the
// development fallback enabled.
var DevUser = User{ID: "dev_user_123", Username: "devuser", FirstName: "Dev", LastName: "User"}

// DisplayName joins the name fragments, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
