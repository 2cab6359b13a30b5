package whatsapp

// Participant is a single group member as seen by the connected account.
type Participant struct {
	JID          string
	IsAdmin      bool
	IsSuperAdmin bool
}

// Group is the domain view of a WhatsApp group, detached from the wire
// representation so callers and tests never touch whatsmeow types.
type Group struct {
	JID          string
	Name         string
	IsAnnounce   bool
	IsLocked     bool
	Participants []Participant
}

// MemberCount returns the number of participants in the group.
func (g Group) MemberCount() int {
	return len(g.Participants)
}

// AdminCount returns the number of admin or superadmin participants.
func (g Group) AdminCount() int {
	n := 0
	for _, p := range g.Participants {
		if p.IsAdmin || p.IsSuperAdmin {
			n++
		}
	}
	return n
}
