package timegeo

import (
	"math"
	"testing"
)

func TestParseFormatIdentity(t *testing.T) {
	cases := []TimeOfDay{"00:00", "09:05", "23:59", "12:00"}
	for _, c := range cases {
		h, m, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", c, err)
		}
		if got := Format(h, m); got != c {
			t.Errorf("Format(Parse(%q)) = %q, want %q", c, got, c)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []TimeOfDay{"24:00", "10:60", "1:00", "bad", "10:5"}
	for _, c := range cases {
		if _, _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", c)
		}
	}
}

func TestAddMinutesIdentityForZero(t *testing.T) {
	got, err := AddMinutes("10:15", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != "10:15" {
		t.Errorf("AddMinutes(x, 0) = %q, want 10:15", got)
	}
}

func TestAddThenSubtractIsIdentity(t *testing.T) {
	start := TimeOfDay("10:15")
	mid, err := AddMinutes(start, 45)
	if err != nil {
		t.Fatal(err)
	}
	back, err := AddMinutes(mid, -45)
	if err != nil {
		t.Fatal(err)
	}
	if back != start {
		t.Errorf("round trip = %q, want %q", back, start)
	}
}

func TestAddMinutesRejectsWrap(t *testing.T) {
	if _, err := AddMinutes("23:50", 20); err == nil {
		t.Error("expected wrap error, got nil")
	}
	if _, err := AddMinutes("00:05", -10); err == nil {
		t.Error("expected wrap error, got nil")
	}
}

func TestCompare(t *testing.T) {
	if !Before("09:00", "09:01") {
		t.Error("09:00 should be before 09:01")
	}
	if Before("09:01", "09:00") {
		t.Error("09:01 should not be before 09:00")
	}
	if Compare("09:00", "09:00") != 0 {
		t.Error("equal times should compare 0")
	}
}

func TestDurationMinutes(t *testing.T) {
	d, err := DurationMinutes("10:00", "11:30")
	if err != nil {
		t.Fatal(err)
	}
	if d != 90 {
		t.Errorf("duration = %d, want 90", d)
	}
}

func TestDayOfWeek(t *testing.T) {
	// 2025-03-01 is a Saturday.
	got, err := DayOfWeek("2025-03-01")
	if err != nil {
		t.Fatal(err)
	}
	if got != "saturday" {
		t.Errorf("DayOfWeek = %q, want saturday", got)
	}
}

func TestDaysBetween(t *testing.T) {
	n, err := DaysBetween("2025-03-01", "2025-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("DaysBetween = %d, want 2", n)
	}
}

func TestHaversineKmZeroForSamePoint(t *testing.T) {
	d := HaversineKm(13.75, 100.50, 13.75, 100.50)
	if math.Abs(d) > 1e-9 {
		t.Errorf("distance for identical points = %v, want ~0", d)
	}
}

func TestHaversineKmKnownDistance(t *testing.T) {
	// Bangkok (13.7563,100.5018) to Chiang Mai (18.7883,98.9853) ~ 588km.
	d := HaversineKm(13.7563, 100.5018, 18.7883, 98.9853)
	if d < 550 || d > 620 {
		t.Errorf("distance = %v, want ~588km", d)
	}
}
