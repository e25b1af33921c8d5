package notify

import (
	"testing"
	"time"
)

func TestDeduperShouldSend(t *testing.T) {
	t.Run("suppresses_within_window", func(t *testing.T) {
		now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
		d := NewDeduper(24 * time.Hour)
		d.now = func() time.Time { return now }

		if !d.ShouldSend("k") {
			t.Fatal("first send should be allowed")
		}

		now = now.Add(23 * time.Hour)
		if d.ShouldSend("k") {
			t.Error("repeat within the window should be suppressed")
		}
	})

	t.Run("allows_after_window", func(t *testing.T) {
		now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
		d := NewDeduper(24 * time.Hour)
		d.now = func() time.Time { return now }

		d.ShouldSend("k")

		now = now.Add(25 * time.Hour)
		if !d.ShouldSend("k") {
			t.Error("send after the window should be allowed")
		}
	})

	t.Run("keys_are_independent", func(t *testing.T) {
		d := NewDeduper(24 * time.Hour)
		if !d.ShouldSend("a") {
			t.Fatal("first send for a should be allowed")
		}
		if !d.ShouldSend("b") {
			t.Error("a send for a different key should be allowed")
		}
	})
}

func TestBudgetAlertKey(t *testing.T) {
	if got := BudgetAlertKey(1, 2, false); got != "budget:1:2:warning" {
		t.Errorf("got %q", got)
	}
	if got := BudgetAlertKey(1, 2, true); got != "budget:1:2:over_budget" {
		t.Errorf("got %q", got)
	}
	if BudgetAlertKey(1, 2, false) == BudgetAlertKey(1, 2, true) {
		t.Error("warning and over-budget alerts must not share a key")
	}
}
