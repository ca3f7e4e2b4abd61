package models

import "time"

// Violation is one triggered category with its score, as shown to moderators.
type Violation struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

// Report is the moderation report posted to a guild's moderator channel
// after a message has been deleted.
type Report struct {
	ID         string      `json:"report_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Latency    float64     `json:"latency_seconds"`
	Author     string      `json:"user"`
	AuthorID   string      `json:"user_id"`
	Content    string      `json:"message"`
	MessageID  string      `json:"message_id"`
	Violations []Violation `json:"violations"`
	MaxScore   float64     `json:"max_score"`
}
