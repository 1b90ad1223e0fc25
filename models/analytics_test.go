package models

import (
	"testing"
	"time"
)

func TestWindowContains(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(24 * time.Hour)}
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"start is inclusive", start, true},
		{"inside", start.Add(time.Hour), true},
		{"end is exclusive", w.End, false},
		{"before", start.Add(-time.Nanosecond), false},
	}
	for _, tt := range tests {
		if got := w.Contains(tt.at); got != tt.want {
			t.Errorf("%s: Contains() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWindowDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if d := (Window{Start: start, End: start.Add(time.Hour)}).Duration(); d != time.Hour {
		t.Errorf("Duration() = %v", d)
	}
	if d := (Window{Start: start.Add(time.Hour), End: start}).Duration(); d != 0 {
		t.Errorf("inverted Duration() = %v, want 0", d)
	}
	w := LastDays(start, 7)
	if !w.End.Equal(start) || !w.Start.Equal(start.AddDate(0, 0, -7)) {
		t.Errorf("LastDays() = %+v", w)
	}
}
