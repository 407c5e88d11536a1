package model

import "time"

// DNCEntry is one do-not-contact domain. Candidates on these domains are
// dropped before evidence gathering in every run mode.
type DNCEntry struct {
	Domain  string    `json:"domain"`
	Reason  string    `json:"reason,omitempty"`
	AddedAt time.Time `json:"added_at"`
}

// SeenDomain records when a domain last surfaced as a hunt candidate.
// Hunt runs skip domains seen inside the configured cooldown window.
type SeenDomain struct {
	Domain   string    `json:"domain"`
	LastSeen time.Time `json:"last_seen"`
}
