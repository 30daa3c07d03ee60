package domain

import (
	"strings"
	"testing"
)

func TestValidIdempotencyKey(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		minLen int
		want   bool
	}{
		{"uuid", "3f2b8c1e-5d0a-4a8e-9a77-0c7f6f1d2e11", 10, true},
		{"all allowed symbols", "a.b_c~d:e-f0", 10, true},
		{"exactly min", "abcdefghij", 10, true},
		{"one short", "abcdefghi", 10, false},
		{"exactly max", strings.Repeat("k", IdempotencyKeyMaxLen), 10, true},
		{"over max", strings.Repeat("k", IdempotencyKeyMaxLen+1), 10, false},
		{"space", "abc def ghij", 10, false},
		{"slash", "abc/defghij", 10, false},
		{"non-ascii", "ключ-ключ-ключ", 10, false},
		{"empty", "", 10, false},
		{"custom min", "abcd", 4, true},
		{"min below one falls back", "abcd", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidIdempotencyKey(tc.key, tc.minLen); got != tc.want {
				t.Fatalf("ValidIdempotencyKey(%q, %d) = %v; want %v", tc.key, tc.minLen, got, tc.want)
			}
		})
	}
}
