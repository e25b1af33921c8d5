package money

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{12345, "123.45"},
		{-12345, "-123.45"},
		{-7, "-0.07"},
		{1000001, "10000.01"},
	}
	for _, tt := range tests {
		if got := Format(tt.minor); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.minor, got, tt.want)
		}
	}
}
