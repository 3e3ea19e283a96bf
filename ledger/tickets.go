package ledger

// =============================================================================
// TICKETS - OPEN -> RESOLVED, nothing else
// =============================================================================

// FileTicket prepends a new OPEN ticket. Title and description are taken as
// given; emptiness is the caller's concern.
func (e *Engine) FileTicket(
	s State,
	ticketType TicketType,
	title, description string,
	actor string,
	relatedEmployeeID string,
) State {
	t := Ticket{
		ID:                e.newID(),
		Type:              ticketType,
		Title:             title,
		Description:       description,
		Status:            TicketOpen,
		CreatedAt:         e.now(),
		CreatedBy:         s.actor(actor, ActorTicketSystem),
		RelatedEmployeeID: relatedEmployeeID,
	}

	next := s
	next.Tickets = prepend(t, s.Tickets, 0)
	return next
}

// ResolveTicket marks an OPEN ticket RESOLVED. Unknown IDs and tickets that
// are already resolved leave s unchanged.
func (e *Engine) ResolveTicket(s State, ticketID string) State {
	for i, t := range s.Tickets {
		if t.ID != ticketID {
			continue
		}
		if t.Status == TicketResolved {
			return s
		}
		tickets := append([]Ticket{}, s.Tickets...)
		tickets[i].Status = TicketResolved

		next := s
		next.Tickets = tickets
		return next
	}
	return s
}
