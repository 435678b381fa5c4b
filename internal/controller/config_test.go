package controller

import "testing"

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "long key shows prefix only",
			key:      "abcdefghijKLMNOPQRSTUVWXYZ",
			expected: "abcdefghij...",
		},
		{
			name:     "exactly ten characters passes through",
			key:      "abcdefghij",
			expected: "abcdefghij",
		},
		{
			name:     "short key passes through",
			key:      "abc",
			expected: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskKey(tt.key); got != tt.expected {
				t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}
