package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// 2026-01-28 is a Wednesday.
var wednesday = time.Date(2026, 1, 28, 15, 4, 0, 0, time.UTC)

func TestDeriveSlots_AlignedWindows(t *testing.T) {
	av := WeeklyAvailability{
		"wednesday": {
			{StartTime: "09:00", EndTime: "10:30"},
			{StartTime: "14:00", EndTime: "15:00"},
		},
	}

	slots, err := DeriveSlots(av, wednesday)
	if err != nil {
		t.Fatalf("DeriveSlots: %v", err)
	}
	want := []string{"09:00", "09:30", "10:00", "14:00", "14:30"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
}

func TestDeriveSlots_CountMatchesWindowLength(t *testing.T) {
	cases := []Window{
		{StartTime: "00:00", EndTime: "00:30"},
		{StartTime: "08:30", EndTime: "12:00"},
		{StartTime: "13:00", EndTime: "23:30"},
	}
	for _, w := range cases {
		av := WeeklyAvailability{"wednesday": {w}}
		slots, err := DeriveSlots(av, wednesday)
		if err != nil {
			t.Fatalf("DeriveSlots(%v): %v", w, err)
		}
		start, _ := ParseClock(w.StartTime)
		end, _ := ParseClock(w.EndTime)
		if len(slots) != (end-start)/SlotMinutes {
			t.Fatalf("window %v: expected %d slots, got %d", w, (end-start)/SlotMinutes, len(slots))
		}
		for i := 1; i < len(slots); i++ {
			if slots[i] <= slots[i-1] {
				t.Fatalf("window %v: slots not strictly increasing: %v", w, slots)
			}
		}
	}
}

func TestDeriveSlots_UnalignedWindowKeepsLastPartialSlot(t *testing.T) {
	av := WeeklyAvailability{"wednesday": {{StartTime: "09:00", EndTime: "09:45"}}}

	slots, err := DeriveSlots(av, wednesday)
	if err != nil {
		t.Fatalf("DeriveSlots: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"09:00", "09:30"}) {
		t.Fatalf("expected [09:00 09:30], got %v", slots)
	}
}

func TestDeriveSlots_OverlappingWindowsAreNotDeduplicated(t *testing.T) {
	av := WeeklyAvailability{"wednesday": {
		{StartTime: "09:00", EndTime: "10:00"},
		{StartTime: "09:30", EndTime: "10:30"},
	}}

	slots, err := DeriveSlots(av, wednesday)
	if err != nil {
		t.Fatalf("DeriveSlots: %v", err)
	}
	want := []string{"09:00", "09:30", "09:30", "10:00"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
}

func TestDeriveSlots_Empty(t *testing.T) {
	day := WeeklyAvailability{"wednesday": {{StartTime: "09:00", EndTime: "10:00"}}}
	cases := []struct {
		name string
		av   WeeklyAvailability
		date time.Time
	}{
		{name: "zero date", av: day, date: time.Time{}},
		{name: "no day key", av: WeeklyAvailability{"monday": {{StartTime: "09:00", EndTime: "10:00"}}}, date: wednesday},
		{name: "empty day", av: WeeklyAvailability{"wednesday": {}}, date: wednesday},
		{name: "start equal end", av: WeeklyAvailability{"wednesday": {{StartTime: "09:00", EndTime: "09:00"}}}, date: wednesday},
		{name: "start after end", av: WeeklyAvailability{"wednesday": {{StartTime: "11:00", EndTime: "09:00"}}}, date: wednesday},
		{name: "nil availability", av: nil, date: wednesday},
	}
	for _, tc := range cases {
		slots, err := DeriveSlots(tc.av, tc.date)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if slots == nil || len(slots) != 0 {
			t.Fatalf("%s: expected empty non-nil slice, got %#v", tc.name, slots)
		}
	}
}

func TestDeriveSlots_HourCarry(t *testing.T) {
	av := WeeklyAvailability{"wednesday": {{StartTime: "09:45", EndTime: "11:00"}}}

	slots, err := DeriveSlots(av, wednesday)
	if err != nil {
		t.Fatalf("DeriveSlots: %v", err)
	}
	want := []string{"09:45", "10:15", "10:45"}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
}

func TestDeriveSlots_MalformedTime(t *testing.T) {
	av := WeeklyAvailability{"wednesday": {{StartTime: "nine", EndTime: "10:00"}}}

	_, err := DeriveSlots(av, wednesday)
	var ce *ClockError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClockError, got %v", err)
	}
	if ce.Value != "nine" {
		t.Fatalf("expected value nine, got %q", ce.Value)
	}
}

func TestWeekdayMapping(t *testing.T) {
	sunday := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range Weekdays() {
		day := sunday.AddDate(0, 0, i)
		if DayKey(day.Weekday()) != key {
			t.Fatalf("%s: expected key %s, got %s", day.Format("2006-01-02"), key, DayKey(day.Weekday()))
		}
	}
}

func TestContains(t *testing.T) {
	av := WeeklyAvailability{"wednesday": {{StartTime: "09:00", EndTime: "10:00"}}}
	ok, err := Contains(av, wednesday, "09:30")
	if err != nil || !ok {
		t.Fatalf("expected 09:30 to be available, ok=%v err=%v", ok, err)
	}
	ok, err = Contains(av, wednesday, "10:00")
	if err != nil || ok {
		t.Fatalf("expected 10:00 to be unavailable, ok=%v err=%v", ok, err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(WeeklyAvailability{"monday": {{StartTime: "09:00", EndTime: "12:00"}}}); err != nil {
		t.Fatalf("expected valid availability, got %v", err)
	}
	if err := Validate(WeeklyAvailability{"funday": {}}); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
	if err := Validate(WeeklyAvailability{"monday": {{StartTime: "22:00", EndTime: "24:00"}}}); err != nil {
		t.Fatalf("expected midnight end to be valid, got %v", err)
	}
	for _, w := range []Window{
		{StartTime: "09:00", EndTime: "24:30"},
		{StartTime: "24:00", EndTime: "24:00"},
		{StartTime: "+9:0", EndTime: "10:00"},
	} {
		if err := Validate(WeeklyAvailability{"monday": {w}}); err == nil {
			t.Fatalf("expected error for window %v", w)
		}
	}
}

func TestDeriveSlots_WindowEndingAtMidnight(t *testing.T) {
	av := WeeklyAvailability{"wednesday": {{StartTime: "23:00", EndTime: "24:00"}}}

	slots, err := DeriveSlots(av, wednesday)
	if err != nil {
		t.Fatalf("DeriveSlots: %v", err)
	}
	if !reflect.DeepEqual(slots, []string{"23:00", "23:30"}) {
		t.Fatalf("expected [23:00 23:30], got %v", slots)
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:05", want: 545},
		{in: "23:59", want: 1439},
		{in: "24:00", wantErr: true},
		{in: "9:00", wantErr: true},
		{in: "+9:0", wantErr: true},
		{in: "09:-1", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "0900", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseClock(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseClock(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}

	if end, err := ParseEndClock("24:00"); err != nil || end != minutesPerDay {
		t.Fatalf("ParseEndClock(24:00) = %d, %v", end, err)
	}
	if _, err := ParseEndClock("24:01"); err == nil {
		t.Fatal("expected error for 24:01")
	}
}
