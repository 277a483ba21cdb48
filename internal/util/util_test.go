package util

import "testing"

func ptr(f float64) *float64 { return &f }

func TestShortID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"empty string", "", 4, ""},
		{"shorter than n", "ab", 4, "ab"},
		{"exactly n", "abcd", 4, "abcd"},
		{"longer than n", "device-1234", 4, "1234"},
		{"last eight", "a1b2c3d4e5f6", 8, "c3d4e5f6"},
		{"zero width", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ShortID(tt.input, tt.n)
			if result != tt.expected {
				t.Errorf("ShortID(%q, %d) = %q, want %q", tt.input, tt.n, result, tt.expected)
			}
		})
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		name     string
		input    *float64
		expected string
	}{
		{"missing", nil, "0 km/h"},
		{"zero", ptr(0), "0 km/h"},
		{"negative", ptr(-3), "0 km/h"},
		{"ten m/s", ptr(10), "36 km/h"},
		{"rounds", ptr(8.3), "30 km/h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatSpeed(tt.input)
			if result != tt.expected {
				t.Errorf("FormatSpeed() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestFormatCoords(t *testing.T) {
	got := FormatCoords(40.712776, -74.005974, 4)
	if got != "40.7128, -74.0060" {
		t.Errorf("FormatCoords() = %q", got)
	}
}
