package policy

import "github.com/lmercier/modbot/internal/models"

// Action is the binary moderation outcome for a message.
type Action string

const (
	ActionAllow           Action = "allow"
	ActionDeleteAndNotify Action = "delete_and_notify"
)

// Decision is derived from a verdict and never stored.
type Decision struct {
	Action    Action
	Triggered []models.Category
	MaxScore  float64
}

// Decide turns an oracle verdict into a moderation decision. A category is
// triggered when the oracle flagged it; the score is display-only and never
// gates. Pure function of its input.
func Decide(verdict models.CategoryVerdict) Decision {
	decision := Decision{Action: ActionAllow}

	for _, category := range models.Categories {
		result := verdict[category]
		if result.Flagged {
			decision.Triggered = append(decision.Triggered, category)
		}
		if result.Score > decision.MaxScore {
			decision.MaxScore = result.Score
		}
	}

	if len(decision.Triggered) > 0 {
		decision.Action = ActionDeleteAndNotify
	}
	return decision
}
