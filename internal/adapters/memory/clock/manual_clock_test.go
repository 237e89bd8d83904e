package clock

import (
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	t.Parallel()

	start := time.Unix(100, 0).UTC()
	c := NewManualClock(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now()=%v, want %v", c.Now(), start)
	}
	c.Advance(time.Minute)
	if want := start.Add(time.Minute); !c.Now().Equal(want) {
		t.Fatalf("Now()=%v, want %v", c.Now(), want)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now() after Set=%v, want %v", c.Now(), start)
	}
}
