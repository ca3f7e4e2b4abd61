package models

// Category is one of the fixed moderation categories the oracle scores.
type Category string

const (
	CategorySexual    Category = "sexual"
	CategoryHate      Category = "hate_and_discrimination"
	CategoryViolence  Category = "violence_and_threats"
	CategoryDangerous Category = "dangerous_and_criminal_content"
	CategorySelfHarm  Category = "selfharm"
	CategoryPII       Category = "pii"
)

// Categories lists every category in a stable order. A CategoryVerdict
// always carries all of them, never a subset.
var Categories = []Category{
	CategorySexual,
	CategoryHate,
	CategoryViolence,
	CategoryDangerous,
	CategorySelfHarm,
	CategoryPII,
}

// CategoryDescriptions maps categories to the labels shown to users.
var CategoryDescriptions = map[Category]string{
	CategorySexual:    "Sexual content",
	CategoryHate:      "Hateful or discriminatory content",
	CategoryViolence:  "Violent or threatening content",
	CategoryDangerous: "Dangerous or criminal content",
	CategorySelfHarm:  "Self-harm",
	CategoryPII:       "Personal information disclosure",
}

// CategoryResult is the oracle's judgment for a single category.
type CategoryResult struct {
	Flagged bool    `json:"flagged"`
	Score   float64 `json:"score"`
}

// CategoryVerdict is the oracle's full judgment for one message.
type CategoryVerdict map[Category]CategoryResult
