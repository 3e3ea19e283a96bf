package ledger

// =============================================================================
// AUDIT TRAIL - Bounded, newest first
// =============================================================================

// AppendLog prepends an entry to the audit trail and keeps only the most
// recent MaxLogEntries. It never fails.
func (e *Engine) AppendLog(s State, message string, level LogLevel, actor string) State {
	if !level.Valid() {
		level = LevelInfo
	}
	entry := LogEntry{
		ID:        e.newID(),
		Timestamp: e.now(),
		Level:     level,
		Message:   message,
		User:      s.actor(actor, ActorSystem),
	}

	next := s
	next.Logs = prepend(entry, s.Logs, MaxLogEntries)
	return next
}
