package ledger_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/canteen-ledger/ledger"
)

// =============================================================================
// AUDIT TRAIL
// =============================================================================

func TestAppendLog_NewestFirstWithActor(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(nil)

	s = engine.AppendLog(s, "first", ledger.LevelInfo, "")
	s = engine.AppendLog(s, "second", ledger.LevelError, "tech")

	require.Len(t, s.Logs, 2)
	assert.Equal(t, "second", s.Logs[0].Message)
	assert.Equal(t, ledger.LevelError, s.Logs[0].Level)
	assert.Equal(t, "tech", s.Logs[0].User)
	assert.Equal(t, ledger.ActorSystem, s.Logs[1].User)
	assert.Equal(t, testNow, s.Logs[1].Timestamp)
}

func TestAppendLog_BoundedToMostRecent(t *testing.T) {
	// GIVEN: 1005 appended entries
	// THEN: exactly 1000 remain, and the 5 oldest are gone

	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(nil)

	for i := 0; i < ledger.MaxLogEntries+5; i++ {
		s = engine.AppendLog(s, fmt.Sprintf("entry %d", i), ledger.LevelInfo, "")
	}

	require.Len(t, s.Logs, ledger.MaxLogEntries)
	assert.Equal(t, "entry 1004", s.Logs[0].Message)
	assert.Equal(t, "entry 5", s.Logs[ledger.MaxLogEntries-1].Message)
}

func TestAppendLog_UnknownLevelDowngradedToInfo(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := engine.AppendLog(ledger.NewState(nil), "x", ledger.LogLevel("DEBUG"), "")
	assert.Equal(t, ledger.LevelInfo, s.Logs[0].Level)
}

// =============================================================================
// TICKETS
// =============================================================================

func TestFileTicket_OpenWithSystemFallback(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(nil)

	s = engine.FileTicket(s, ledger.TicketUserFlag, "Over limit", "Balance looks wrong", "", "e-1")

	require.Len(t, s.Tickets, 1)
	ticket := s.Tickets[0]
	assert.Equal(t, ledger.TicketOpen, ticket.Status)
	assert.Equal(t, ledger.ActorTicketSystem, ticket.CreatedBy)
	assert.Equal(t, "e-1", ticket.RelatedEmployeeID)
	assert.Equal(t, testNow, ticket.CreatedAt)
}

func TestFileTicket_EmptyTitleAccepted(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := engine.FileTicket(ledger.NewState(nil), ledger.TicketSystemBug, "", "", "admin", "")
	require.Len(t, s.Tickets, 1)
	assert.Equal(t, "admin", s.Tickets[0].CreatedBy)
}

func TestResolveTicket_Lifecycle(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := engine.FileTicket(ledger.NewState(nil), ledger.TicketSystemBug, "crash", "", "", "")
	s = engine.FileTicket(s, ledger.TicketUserFlag, "flag", "", "", "")
	id := s.Tickets[1].ID

	resolved := engine.ResolveTicket(s, id)
	ticket, ok := resolved.Ticket(id)
	require.True(t, ok)
	assert.Equal(t, ledger.TicketResolved, ticket.Status)
	assert.Equal(t, ledger.TicketOpen, resolved.Tickets[0].Status, "other tickets untouched")
	assert.Equal(t, ledger.TicketOpen, s.Tickets[1].Status, "input not mutated")
	assert.Len(t, resolved.OpenTickets(), 1)

	again := engine.ResolveTicket(resolved, id)
	assert.Equal(t, resolved, again, "resolving twice is a no-op")
}

func TestResolveTicket_UnknownIDIsNoOp(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := engine.FileTicket(ledger.NewState(nil), ledger.TicketSystemBug, "crash", "", "", "")

	assert.Equal(t, s, engine.ResolveTicket(s, "nope"))
}

// =============================================================================
// SYSTEM USERS AND SESSION
// =============================================================================

func seedUsers() []ledger.SystemUser {
	return []ledger.SystemUser{
		{Username: "admin", PasswordHash: "h1", Role: ledger.RoleAdmin},
		{Username: "tech", PasswordHash: "h2", Role: ledger.RoleTech},
	}
}

func TestAddSystemUser_AppendsAndWarns(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(seedUsers())

	s, err := engine.AddSystemUser(s, ledger.SystemUser{Username: "ops", PasswordHash: "h", Role: ledger.RoleTech}, "tech")
	require.NoError(t, err)

	require.Len(t, s.SystemUsers, 3)
	assert.Equal(t, "ops", s.SystemUsers[2].Username)
	require.Len(t, s.Logs, 1)
	assert.Equal(t, ledger.LevelWarning, s.Logs[0].Level)
	assert.Equal(t, "New System User Created: ops (TECH)", s.Logs[0].Message)
	assert.Equal(t, "tech", s.Logs[0].User)
}

func TestAddSystemUser_DuplicateRejected(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(seedUsers())

	after, err := engine.AddSystemUser(s, ledger.SystemUser{Username: "admin", PasswordHash: "x", Role: ledger.RoleTech}, "")
	assert.ErrorIs(t, err, ledger.ErrDuplicateUser)
	assert.True(t, ledger.IsConflict(err))
	assert.Equal(t, s, after)
}

func TestAddSystemUser_InvalidRejected(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(nil)

	cases := []ledger.SystemUser{
		{Username: "", PasswordHash: "h", Role: ledger.RoleAdmin},
		{Username: "a", PasswordHash: "", Role: ledger.RoleAdmin},
		{Username: "a", PasswordHash: "h", Role: ledger.Role("NONE")},
	}
	for _, u := range cases {
		after, err := engine.AddSystemUser(s, u, "")
		assert.ErrorIs(t, err, ledger.ErrInvalidUser)
		assert.Equal(t, s, after)
	}
}

func TestSignInSignOut(t *testing.T) {
	engine := newTestEngine(ledger.Options{})
	s := ledger.NewState(seedUsers())

	admin, _ := s.SystemUser("admin")
	s = engine.SignIn(s, admin.Identity())
	require.NotNil(t, s.CurrentUser)
	assert.Equal(t, "admin", s.CurrentUser.Username)
	assert.Equal(t, "User Login: admin", s.Logs[0].Message)

	s = engine.FileTicket(s, ledger.TicketSystemBug, "t", "", "", "")
	assert.Equal(t, "admin", s.Tickets[0].CreatedBy, "session user becomes the actor")

	s = engine.SignOut(s)
	assert.Nil(t, s.CurrentUser)
	assert.Equal(t, "User Logout: admin", s.Logs[0].Message)

	assert.Equal(t, s, engine.SignOut(s), "signing out twice is a no-op")
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestNormalize_SeedsMissingUsersAndCollections(t *testing.T) {
	s := ledger.Normalize(ledger.State{}, seedUsers())

	assert.Len(t, s.SystemUsers, 2)
	assert.NotNil(t, s.Tickets)
	assert.NotNil(t, s.Logs)
	assert.NotNil(t, s.Employees)
	assert.NotNil(t, s.Transactions)

	custom := ledger.State{SystemUsers: []ledger.SystemUser{{Username: "only"}}}
	assert.Len(t, ledger.Normalize(custom, seedUsers()).SystemUsers, 1, "existing users kept")
}
