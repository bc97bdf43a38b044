package acceptance

import "time"

// Rule decides whether a decoded invoice may enter the audit store.
// Expression is a CEL expression over the decoded invoice fields and must
// evaluate to bool.
type Rule struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	Priority   int       `json:"priority"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
