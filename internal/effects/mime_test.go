package effects_test

import (
	"testing"

	"github.com/MrWong99/ostinato/internal/effects"
)

func TestDescribeMIME(t *testing.T) {
	t.Parallel()

	cases := []struct {
		mime      string
		extension string
		format    string
	}{
		{"audio/mpeg", "mp3", "mp3"},
		{"audio/ogg", "ogg", "ogg"},
		{"audio/wav", "wav", "wav"},
		{"video/mp4", "mp4", "mp4"},
		{"video/mpeg", "mpeg", "mpegts"},
		{"video/webm", "webm", "dash"},
	}
	for _, tc := range cases {
		t.Run(tc.mime, func(t *testing.T) {
			t.Parallel()
			desc, ok := effects.DescribeMIME(tc.mime)
			if !ok {
				t.Fatalf("DescribeMIME(%q): expected support", tc.mime)
			}
			if desc.Extension != tc.extension || desc.Format != tc.format {
				t.Fatalf("DescribeMIME(%q): expected {%s %s}, got %+v",
					tc.mime, tc.extension, tc.format, desc)
			}
		})
	}

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()
		if _, ok := effects.DescribeMIME("application/pdf"); ok {
			t.Fatal("DescribeMIME: expected application/pdf to be unsupported")
		}
	})
}

func TestMIMEForExtension(t *testing.T) {
	t.Parallel()

	if mt, ok := effects.MIMEForExtension("mp3"); !ok || mt != "audio/mpeg" {
		t.Fatalf("MIMEForExtension(mp3): expected audio/mpeg, got %q ok=%v", mt, ok)
	}
	if _, ok := effects.MIMEForExtension("exe"); ok {
		t.Fatal("MIMEForExtension(exe): expected no match")
	}
}
