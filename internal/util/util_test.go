package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
		{" true ", false, true},
	}
	for _, tc := range cases {
		t.Setenv("TEST_BOOL_ENV", tc.value)
		if got := ParseBoolEnv("TEST_BOOL_ENV", tc.def); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
		}
	}
}

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID("in_", 16)
	if len(id) != 3+16 {
		t.Errorf("expected length 19, got %d (%q)", len(id), id)
	}
	if id[:3] != "in_" {
		t.Errorf("expected prefix in_, got %q", id)
	}

	other := GenerateRandomID("in_", 16)
	if id == other {
		t.Errorf("expected distinct IDs, got %q twice", id)
	}
}

func TestGenerateRandomHex(t *testing.T) {
	if got := GenerateRandomHex(0); got != "" {
		t.Errorf("expected empty string for zero length, got %q", got)
	}
	if got := GenerateRandomHex(-1); got != "" {
		t.Errorf("expected empty string for negative length, got %q", got)
	}
	hex := GenerateRandomHex(32)
	if len(hex) != 32 {
		t.Fatalf("expected 32 chars, got %d", len(hex))
	}
	for _, c := range hex {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Fatalf("non-hex character %q in %q", c, hex)
		}
	}
}
