package session

// Context identifies the user a flow acts on behalf of. It is read once
// when the flow starts and never mutated afterwards, so a logout in a
// concurrent flow is not observed until the next flow begins.
type Context struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Valid reports whether both identity fields are present.
func (c Context) Valid() bool {
	return c.UserID != "" && c.Email != ""
}
