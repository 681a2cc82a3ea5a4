package domain

// State is the single persisted record. A nil LastCheckedMessageID means no scan
// has completed yet.
type State struct {
	LastCheckedMessageID *uint64 `json:"last_checked_message_id,omitempty"`
}

// Cursor returns the stored cursor, or 0 when absent.
func (s State) Cursor() uint64 {
	if s.LastCheckedMessageID == nil {
		return 0
	}
	return *s.LastCheckedMessageID
}
