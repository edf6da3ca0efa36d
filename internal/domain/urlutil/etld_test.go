package urlutil

import "testing"

func TestEffectiveTLDPlusOne(t *testing.T) {
	cases := map[string]string{
		"https://www.politiken.dk/some/path": "politiken.dk",
		"https://sub.example.co.uk/x":        "example.co.uk",
		"reuters.com":                        "reuters.com",
		"https://a.b.c.reuters.com":          "reuters.com",
	}
	for in, want := range cases {
		if got := EffectiveTLDPlusOne(in); got != want {
			t.Errorf("EffectiveTLDPlusOne(%q) = %q, want %q", in, got, want)
		}
	}
}
