package domain

import "testing"

func TestNormalizeAspectRatio(t *testing.T) {
	tests := []struct {
		raw  string
		want AspectRatio
	}{
		{"1:1", AspectSquare},
		{"9:16", AspectPortrait},
		{"16:9", AspectLandscape},
		{"3:4", AspectPhoto},
		{"4:3", AspectWide},
		{" 16:9 ", AspectLandscape},
		{"", AspectSquare},
		{"21:9", AspectSquare},
	}
	for _, tt := range tests {
		if got := NormalizeAspectRatio(tt.raw); got != tt.want {
			t.Errorf("NormalizeAspectRatio(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	terminal := map[TaskStatus]bool{
		TaskStatusQueued:     false,
		TaskStatusGenerating: false,
		TaskStatusSuccess:    true,
		TaskStatusFailed:     true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
