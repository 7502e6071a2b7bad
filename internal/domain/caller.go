package domain

// Caller identifies who invoked a workflow entry point. Lookups are scoped to
// the caller's own records unless the caller is an administrator.
type Caller struct {
	UserID string
	Admin  bool
}

func (c Caller) String() string {
	if c.Admin {
		return "admin:" + c.UserID
	}
	return "user:" + c.UserID
}
