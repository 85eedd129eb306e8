package domain

// NotificationItem is one highlighted artifact with a direct link.
type NotificationItem struct {
	Kind     string `json:"kind"`
	Slug     string `json:"slug"`
	Category string `json:"category"`
	Score    int    `json:"score,omitempty"`
	Reason   string `json:"reason,omitempty"`
	URL      string `json:"url"`
}

// Notification is the run summary delivered to external sinks.
type Notification struct {
	RunID        string             `json:"runId"`
	DryRun       bool               `json:"dryRun"`
	Text         string             `json:"text"`
	Generated    int                `json:"generated"`
	Enriched     int                `json:"enriched"`
	Published    int                `json:"published"`
	Rejected     int                `json:"rejected"`
	Errors       int                `json:"errors"`
	AverageScore float64            `json:"averageScore"`
	Highlights   []NotificationItem `json:"highlights"`
}
