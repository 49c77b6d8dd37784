package clock

import (
	"testing"
	"time"
)

func TestMockAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMock(start)

	c.Advance(65 * time.Second)

	if got := c.Since(start); got != 65*time.Second {
		t.Errorf("Since() = %v, want 65s", got)
	}
	if !c.Now().Equal(start.Add(65 * time.Second)) {
		t.Errorf("Now() = %v, want %v", c.Now(), start.Add(65*time.Second))
	}
}

func TestMockSet(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMock(start)

	earlier := start.Add(-time.Minute)
	c.Set(earlier)

	if !c.Now().Equal(earlier) {
		t.Errorf("Now() = %v, want %v", c.Now(), earlier)
	}
}

func TestRealSince(t *testing.T) {
	c := NewReal()
	before := c.Now()
	if c.Since(before) < 0 {
		t.Error("Since() returned a negative duration")
	}
}
