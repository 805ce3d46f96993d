package util

import "testing"

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello..."},
		{"multibyte", "Снег белый", 4, "Снег..."},
		{"zero", "hello", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	got := Preview("Water evaporates.\n\n  Clouds form,\train falls.", 30)
	want := "Water evaporates. Clouds form,..."
	if got != want {
		t.Errorf("Preview() = %q, want %q", got, want)
	}
}
