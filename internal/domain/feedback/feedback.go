package feedback

import "github.com/SPD-BES-2025-3/grupo1/internal/domain/listing"

// Session is the client-held state of one query's like/dislike feedback.
type Session struct {
	Query     string        `json:"query"`
	Liked     []listing.Hit `json:"liked"`
	Disliked  []listing.Hit `json:"disliked"`
	Remaining []listing.Hit `json:"remaining"`
}

// Selection is one remaining candidate picked for display.
type Selection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Decision is the outcome of re-ranking a session.
type Decision struct {
	Reasoning string      `json:"decision_reasoning"`
	ShowMore  bool        `json:"should_show_more"`
	Selected  []Selection `json:"selected_properties"`
}
