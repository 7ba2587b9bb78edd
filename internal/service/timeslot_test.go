package service

import (
	"errors"
	"reflect"
	"testing"
)

func TestHalfHourLabels(t *testing.T) {
	got := halfHourLabels(9, 11)
	want := []string{"09:00", "09:30", "10:00", "10:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}
	if n := len(halfHourLabels(0, 24)); n != 48 {
		t.Fatalf("full day = %d ticks, want 48", n)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-06-02", "2025-06-02", false},
		{" 2025-06-02 ", "2025-06-02", false},
		{"2025-02-30", "", true},
		{"02/06/2025", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDate) {
				t.Errorf("parseDate(%q) err = %v, want ErrInvalidDate", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseDate(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestValidLabel(t *testing.T) {
	for l, want := range map[string]bool{
		"09:30": true,
		"23:30": true,
		"9:30":  false,
		"24:00": false,
		"09:3":  false,
		"ab:cd": false,
	} {
		if got := validLabel(l); got != want {
			t.Errorf("validLabel(%q) = %v, want %v", l, got, want)
		}
	}
}

func TestFormatLabel(t *testing.T) {
	for in, want := range map[string]string{
		"09:00": "09:00 AM",
		"14:30": "02:30 PM",
		"00:00": "12:00 AM",
		"bogus": "bogus",
	} {
		if got := FormatLabel(in); got != want {
			t.Errorf("FormatLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInvalidErrorsMatchInvalidInput(t *testing.T) {
	for _, err := range []error{ErrInvalidPhone, ErrInvalidDate, ErrInvalidRange} {
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%v does not match ErrInvalidInput", err)
		}
	}
}
