package entity

// Session is the per-invocation context a host hands to a command.
type Session struct {
	UserID   string
	Username string
	Platform string
}
