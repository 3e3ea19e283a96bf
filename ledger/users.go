package ledger

import "fmt"

// =============================================================================
// SYSTEM USERS AND SESSION
// =============================================================================

// AddSystemUser appends a back-office account. Usernames are unique; a
// duplicate returns ErrDuplicateUser with s unchanged. A successful addition
// is a security event and writes a WARNING entry in the same transition.
//
// The password must already be hashed (see package credentials).
func (e *Engine) AddSystemUser(s State, u SystemUser, actor string) (State, error) {
	if u.Username == "" || u.PasswordHash == "" || !u.Role.Valid() {
		return s, fmt.Errorf("%w: username, password and role ADMIN|TECH are required", ErrInvalidUser)
	}
	if _, exists := s.SystemUser(u.Username); exists {
		return s, fmt.Errorf("%w: %s", ErrDuplicateUser, u.Username)
	}

	next := s
	next.SystemUsers = make([]SystemUser, 0, len(s.SystemUsers)+1)
	next.SystemUsers = append(next.SystemUsers, s.SystemUsers...)
	next.SystemUsers = append(next.SystemUsers, u)

	msg := fmt.Sprintf("New System User Created: %s (%s)", u.Username, u.Role)
	return e.AppendLog(next, msg, LevelWarning, actor), nil
}

// SignIn attaches u to the snapshot as the session identity.
func (e *Engine) SignIn(s State, u User) State {
	next := s
	next.CurrentUser = &User{Username: u.Username, Role: u.Role}
	return e.AppendLog(next, "User Login: "+u.Username, LevelInfo, u.Username)
}

// SignOut clears the session identity. Signing out without a session is a no-op.
func (e *Engine) SignOut(s State) State {
	if s.CurrentUser == nil {
		return s
	}
	name := s.CurrentUser.Username
	next := e.AppendLog(s, "User Logout: "+name, LevelInfo, name)
	next.CurrentUser = nil
	return next
}
