package poller

import (
	"testing"
	"time"
)

// TestInterval_EmptyCycleDebounce verifies that the first two consecutive
// empty cycles leave the cadence untouched and the third one grows it by the
// backoff factor.
func TestInterval_EmptyCycleDebounce(t *testing.T) {
	iv := NewInterval(10 * time.Second)

	iv.Adjust(false, 0)
	if got := iv.Current(); got != 10*time.Second {
		t.Errorf("after 1 empty cycle Current() = %v, want %v", got, 10*time.Second)
	}

	iv.Adjust(false, 0)
	if got := iv.Current(); got != 10*time.Second {
		t.Errorf("after 2 empty cycles Current() = %v, want %v", got, 10*time.Second)
	}

	iv.Adjust(false, 0)
	if got := iv.Current(); got != 15*time.Second {
		t.Errorf("after 3 empty cycles Current() = %v, want %v", got, 15*time.Second)
	}

	if got := iv.EmptyCycles(); got != 3 {
		t.Errorf("EmptyCycles() = %d, want 3", got)
	}
}

// TestInterval_BackoffKeepsGrowing verifies that every empty cycle past the
// threshold keeps multiplying the cadence.
func TestInterval_BackoffKeepsGrowing(t *testing.T) {
	iv := NewInterval(10 * time.Second)

	for i := 0; i < 4; i++ {
		iv.Adjust(false, 0)
	}

	// 10s * 1.5 * 1.5 after the third and fourth empty cycles
	want := time.Duration(float64(10*time.Second) * 1.5 * 1.5)
	if got := iv.Current(); got != want {
		t.Errorf("after 4 empty cycles Current() = %v, want %v", got, want)
	}
}

// TestInterval_ContentResets verifies that a cycle with new content restores
// the base cadence and zeroes the empty-cycle count, regardless of prior
// state.
func TestInterval_ContentResets(t *testing.T) {
	iv := NewInterval(10 * time.Second)

	for i := 0; i < 5; i++ {
		iv.Adjust(false, 0)
	}
	if iv.Current() == 10*time.Second {
		t.Fatal("expected backoff to have grown the interval before reset")
	}

	iv.Adjust(true, 0)

	if got := iv.Current(); got != 10*time.Second {
		t.Errorf("after content Current() = %v, want %v", got, 10*time.Second)
	}
	if got := iv.EmptyCycles(); got != 0 {
		t.Errorf("after content EmptyCycles() = %d, want 0", got)
	}
}

// TestInterval_SuggestionWins verifies that a positive backend suggestion is
// adopted directly and leaves the empty-cycle count alone.
func TestInterval_SuggestionWins(t *testing.T) {
	iv := NewInterval(10 * time.Second)

	iv.Adjust(false, 0)
	iv.Adjust(false, 0)

	iv.Adjust(false, 2500*time.Millisecond)

	if got := iv.Current(); got != 2500*time.Millisecond {
		t.Errorf("Current() = %v, want %v", got, 2500*time.Millisecond)
	}
	if got := iv.EmptyCycles(); got != 2 {
		t.Errorf("EmptyCycles() = %d, want 2 (suggestion must not touch the count)", got)
	}
}

// TestInterval_SuggestionOverridesContent verifies the precedence order: a
// suggestion beats the content reset, so the count survives even a content
// cycle that carries a suggestion.
func TestInterval_SuggestionOverridesContent(t *testing.T) {
	iv := NewInterval(10 * time.Second)

	iv.Adjust(false, 0)
	iv.Adjust(true, 3*time.Second)

	if got := iv.Current(); got != 3*time.Second {
		t.Errorf("Current() = %v, want %v", got, 3*time.Second)
	}
	if got := iv.EmptyCycles(); got != 1 {
		t.Errorf("EmptyCycles() = %d, want 1", got)
	}
}

// TestInterval_SuggestionFloor verifies that suggestions below one second
// are floored rather than adopted.
func TestInterval_SuggestionFloor(t *testing.T) {
	iv := NewInterval(10 * time.Second)

	iv.Adjust(false, 200*time.Millisecond)

	if got := iv.Current(); got != time.Second {
		t.Errorf("Current() = %v, want %v", got, time.Second)
	}
}

// TestInterval_BackoffCap verifies the cadence never grows past the cap.
func TestInterval_BackoffCap(t *testing.T) {
	iv := NewInterval(4 * time.Minute)

	for i := 0; i < 10; i++ {
		iv.Adjust(false, 0)
	}

	if got := iv.Current(); got != 5*time.Minute {
		t.Errorf("Current() = %v, want cap of %v", got, 5*time.Minute)
	}
}

// TestInterval_Reset verifies Reset restores the base cadence from any
// state.
func TestInterval_Reset(t *testing.T) {
	iv := NewInterval(time.Minute)

	for i := 0; i < 6; i++ {
		iv.Adjust(false, 0)
	}
	iv.Adjust(false, 90*time.Second)

	iv.Reset()

	if got := iv.Current(); got != time.Minute {
		t.Errorf("after Reset Current() = %v, want %v", got, time.Minute)
	}
	if got := iv.EmptyCycles(); got != 0 {
		t.Errorf("after Reset EmptyCycles() = %d, want 0", got)
	}
}
