package pkg

import (
	"testing"
	"time"
)

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Given an afternoon timestamp Then StartOfDay is midnight same day", func(t *testing.T) {
		ts := time.Date(2024, 3, 15, 14, 30, 45, 123, loc)
		got := StartOfDay(ts)
		want := time.Date(2024, 3, 15, 0, 0, 0, 0, loc)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("Given an afternoon timestamp Then EndOfDay is 23:59:59.999 same day", func(t *testing.T) {
		ts := time.Date(2024, 3, 15, 14, 30, 45, 123, loc)
		got := EndOfDay(ts)
		want := time.Date(2024, 3, 15, 23, 59, 59, 999000000, loc)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("Given midnight Then both bounds stay on the same day", func(t *testing.T) {
		ts := time.Date(2024, 3, 15, 0, 0, 0, 0, loc)
		if StartOfDay(ts).Day() != 15 || EndOfDay(ts).Day() != 15 {
			t.Error("bounds moved off the day")
		}
	})
}

func TestSameCalendarDay(t *testing.T) {
	amsterdam, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("Given two times on one day Then same", func(t *testing.T) {
		a := time.Date(2024, 3, 15, 0, 1, 0, 0, amsterdam)
		b := time.Date(2024, 3, 15, 23, 58, 0, 0, amsterdam)
		if !SameCalendarDay(a, b) {
			t.Error("expected same calendar day")
		}
	})

	t.Run("Given a minute across midnight Then different", func(t *testing.T) {
		a := time.Date(2024, 3, 15, 23, 59, 0, 0, amsterdam)
		b := time.Date(2024, 3, 16, 0, 0, 30, 0, amsterdam)
		if SameCalendarDay(a, b) {
			t.Error("expected different calendar days")
		}
	})

	t.Run("Given a UTC instant Then the comparison runs in the second argument's zone", func(t *testing.T) {
		// 23:30 UTC on the 15th is already the 16th in Amsterdam (UTC+1)
		a := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
		b := time.Date(2024, 3, 16, 10, 0, 0, 0, amsterdam)
		if !SameCalendarDay(a, b) {
			t.Error("expected same calendar day once converted")
		}
	})
}
