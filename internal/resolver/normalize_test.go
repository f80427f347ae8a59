package resolver

import (
	"testing"
)

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already normalized", "CPL211", "CPL211"},
		{"spaces and case", "cp l 211", "CPL211"},
		{"tabs and newlines", "\tcpeng\n511 ", "CPENG511"},
		{"full-width", "ＣＰＥＮＧ５１１", "CPENG511"},
		{"ideographic space", "CPENG\u3000511", "CPENG511"},
		{"no-break space", "CPENG\u00a0511", "CPENG511"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeCode(tt.in); got != tt.want {
				t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeCode_Idempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"cp l 211", "ＣＰＥＮＧ５１１", "eeeng 999"} {
		once := NormalizeCode(in)
		if twice := NormalizeCode(once); twice != once {
			t.Errorf("NormalizeCode not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSplitAbbrevs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"JD", []string{"JD"}},
		{"JD, AB", []string{"JD", "AB"}},
		{" JD ,, AB ,JD", []string{"JD", "AB"}},
		{"", []string{}},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		got := SplitAbbrevs(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("SplitAbbrevs(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SplitAbbrevs(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
