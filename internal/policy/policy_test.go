package policy

import (
	"testing"

	"github.com/lmercier/modbot/internal/models"
)

func cleanVerdict() models.CategoryVerdict {
	verdict := make(models.CategoryVerdict, len(models.Categories))
	for _, category := range models.Categories {
		verdict[category] = models.CategoryResult{Flagged: false, Score: 0.01}
	}
	return verdict
}

func TestDecideAllClear(t *testing.T) {
	decision := Decide(cleanVerdict())

	if decision.Action != ActionAllow {
		t.Errorf("expected ActionAllow, got %s", decision.Action)
	}
	if len(decision.Triggered) != 0 {
		t.Errorf("expected no triggered categories, got %v", decision.Triggered)
	}
}

func TestDecideAnySingleFlagTriggers(t *testing.T) {
	for _, category := range models.Categories {
		verdict := cleanVerdict()
		verdict[category] = models.CategoryResult{Flagged: true, Score: 0.5}

		decision := Decide(verdict)
		if decision.Action != ActionDeleteAndNotify {
			t.Errorf("%s flagged: expected ActionDeleteAndNotify, got %s", category, decision.Action)
		}
		if len(decision.Triggered) != 1 || decision.Triggered[0] != category {
			t.Errorf("%s flagged: expected triggered=[%s], got %v", category, category, decision.Triggered)
		}
	}
}

func TestDecideViolenceScenario(t *testing.T) {
	verdict := cleanVerdict()
	verdict[models.CategoryViolence] = models.CategoryResult{Flagged: true, Score: 0.87}

	decision := Decide(verdict)

	if decision.Action != ActionDeleteAndNotify {
		t.Errorf("expected ActionDeleteAndNotify, got %s", decision.Action)
	}
	if decision.MaxScore != 0.87 {
		t.Errorf("expected max score 0.87, got %v", decision.MaxScore)
	}
	if len(decision.Triggered) != 1 || decision.Triggered[0] != models.CategoryViolence {
		t.Errorf("expected triggered=[violence_and_threats], got %v", decision.Triggered)
	}
}

func TestDecideMaxScoreIgnoresFlags(t *testing.T) {
	// The highest score wins even when its category is not flagged.
	verdict := cleanVerdict()
	verdict[models.CategoryPII] = models.CategoryResult{Flagged: false, Score: 0.93}
	verdict[models.CategoryHate] = models.CategoryResult{Flagged: true, Score: 0.61}

	decision := Decide(verdict)

	if decision.MaxScore != 0.93 {
		t.Errorf("expected max score 0.93, got %v", decision.MaxScore)
	}
	if decision.Action != ActionDeleteAndNotify {
		t.Errorf("expected ActionDeleteAndNotify, got %s", decision.Action)
	}
}

func TestDecideMultipleFlagged(t *testing.T) {
	verdict := cleanVerdict()
	verdict[models.CategorySexual] = models.CategoryResult{Flagged: true, Score: 0.4}
	verdict[models.CategoryDangerous] = models.CategoryResult{Flagged: true, Score: 0.7}

	decision := Decide(verdict)

	if len(decision.Triggered) != 2 {
		t.Fatalf("expected 2 triggered categories, got %v", decision.Triggered)
	}
	if decision.MaxScore != 0.7 {
		t.Errorf("expected max score 0.7, got %v", decision.MaxScore)
	}
}

func TestDecideScoresDoNotGate(t *testing.T) {
	// A high score without a flag never triggers on its own.
	verdict := cleanVerdict()
	verdict[models.CategoryViolence] = models.CategoryResult{Flagged: false, Score: 0.99}

	decision := Decide(verdict)

	if decision.Action != ActionAllow {
		t.Errorf("expected ActionAllow, got %s", decision.Action)
	}
}
