package discord_test

import (
	"testing"

	"github.com/MrWong99/ostinato/internal/discord"
)

func TestParseInvocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in        string
		prefix    string
		wantName  string
		wantQuery string
		wantOK    bool
	}{
		{"!horn", "!", "horn", "", true},
		{"!horn air raid", "!", "horn", "air raid", true},
		{"!horn   air raid  ", "!", "horn", "air raid", true},
		{"!horn\tair", "!", "horn", "air", true},
		{"! horn", "!", "", "", false},
		{"!", "!", "", "", false},
		{"hello there", "!", "", "", false},
		{"horn", "!", "", "", false},
		{"$play rickroll", "$", "play", "rickroll", true},
		{"!!double", "!", "!double", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			name, query, ok := discord.ParseInvocation(tc.prefix, tc.in)
			if ok != tc.wantOK {
				t.Fatalf("ParseInvocation(%q): ok = %v, want %v", tc.in, ok, tc.wantOK)
			}
			if name != tc.wantName || query != tc.wantQuery {
				t.Fatalf("ParseInvocation(%q): got (%q, %q), want (%q, %q)",
					tc.in, name, query, tc.wantName, tc.wantQuery)
			}
		})
	}
}
