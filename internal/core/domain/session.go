package domain

// Session is an explicit value pointing at exactly one user. Callers hold the
// value they were returned; the core keeps no implicit current-user global.
// A nil *Session means anonymous.
type Session struct {
	User  *User `json:"user"`
	Stage Stage `json:"stage"`
	// PendingSync is true when the backing record carries local mutations
	// the remote service has not yet acknowledged.
	PendingSync bool `json:"pendingSync,omitempty"`
}

// NewSession builds a session around a sanitized projection of the user with
// a freshly derived stage.
func NewSession(u *User, policy CredentialPolicy) *Session {
	if u == nil {
		return nil
	}
	return &Session{
		User:        u.Sanitized(),
		Stage:       DeriveStage(u.Flags, policy),
		PendingSync: u.PendingSync,
	}
}
