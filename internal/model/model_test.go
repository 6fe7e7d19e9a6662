package model

import (
	"errors"
	"testing"
	"time"
)

func TestValidateRejectsNonPositiveSpan(t *testing.T) {
	start := time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		end  time.Time
		ok   bool
	}{
		{"after", start.Add(time.Hour), true},
		{"equal", start, false},
		{"before", start.Add(-time.Minute), false},
		{"zero", time.Time{}, false},
	}
	for _, tc := range cases {
		err := CalendarEvent{Start: start, End: tc.end}.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != "end" {
				t.Fatalf("%s: expected end field error, got %v", tc.name, err)
			}
		}
	}
}

func TestParseView(t *testing.T) {
	for in, want := range map[string]View{"Month": ViewMonth, "week": ViewWeek, " DAY ": ViewDay} {
		got, err := ParseView(in)
		if err != nil || got != want {
			t.Fatalf("ParseView(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseView("agenda"); err == nil {
		t.Fatal("expected error for unknown view")
	}
	if ViewMonth.SupportsDrag() || !ViewWeek.SupportsDrag() || !ViewDay.SupportsDrag() {
		t.Fatal("only week/day views support drag")
	}
}

func TestViewTextRoundTrip(t *testing.T) {
	var v View
	if err := v.UnmarshalText([]byte("week")); err != nil {
		t.Fatal(err)
	}
	b, _ := v.MarshalText()
	if string(b) != "week" {
		t.Fatalf("MarshalText = %q", b)
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("prev"); err != nil || d != Prev {
		t.Fatalf("prev: %v %v", d, err)
	}
	if d, err := ParseDirection("NEXT"); err != nil || d != Next {
		t.Fatalf("next: %v %v", d, err)
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Fatal("expected error")
	}
}
