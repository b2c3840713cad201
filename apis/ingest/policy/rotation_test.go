package policy

import (
	"testing"
	"time"
)

func TestByDuration_NextRotation(t *testing.T) {
	last := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := ByDuration{Interval: 24 * time.Hour}

	got := p.NextRotation(last)
	want := last.Add(24 * time.Hour)
	if !got.Equal(want) {
		t.Fatalf("NextRotation = %v, want %v", got, want)
	}
}

func TestByDay_NextRotation_IsNextLocalMidnight(t *testing.T) {
	loc := time.UTC
	last := time.Date(2025, 3, 1, 23, 59, 0, 0, loc)
	p := ByDay{}

	got := p.NextRotation(last)
	want := time.Date(2025, 3, 2, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("NextRotation = %v, want %v", got, want)
	}
	if !got.After(last) {
		t.Fatalf("NextRotation %v must be strictly after last %v", got, last)
	}
}

func TestByDay_NextRotation_AtMidnightStillAdvances(t *testing.T) {
	loc := time.UTC
	last := time.Date(2025, 3, 1, 0, 0, 0, 0, loc)
	p := ByDay{}

	got := p.NextRotation(last)
	want := time.Date(2025, 3, 2, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("NextRotation = %v, want %v", got, want)
	}
}
