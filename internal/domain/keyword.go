package domain

import "time"

// KeywordStatus tracks whether a backlog item can still be turned into content.
type KeywordStatus string

const (
	KeywordActive KeywordStatus = "active"
	KeywordUsed   KeywordStatus = "used"
)

// KeywordOpportunity is a prioritized backlog topic.
type KeywordOpportunity struct {
	Keyword   string
	Category  string
	Priority  int
	Status    KeywordStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
