package core

import (
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"-5", "-5", true},
		{"0", "0", true},
		{"1e3", "1000", true},
		{"1000000000000", "1000000000000", true},
		{"-1000000000000", "-1000000000000", true},
		{"0.12345678", "0.12345678", true},
		{"0.10000000000", "0.1", true},
		{"1,23", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"1e400", "", false},
		{"-1E400", "", false},
		{"1e13", "", false},
		{"1000000000000.01", "", false},
		{"1e-2000000000", "", false},
		{"0.123456789", "", false},
		{strings.Repeat("1", 33), "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}
