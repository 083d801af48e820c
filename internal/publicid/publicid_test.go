package publicid

import (
	"regexp"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Acme Studios", "acme-studios"},
		{"  Café del Mar!! ", "caf-del-mar"},
		{"--already-slugged--", "already-slugged"},
		{"ALL CAPS & SYMBOLS!!!", "all-caps-symbols"},
		{"", ""},
		{"   ", ""},
		{"123", "123"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	inputs := []string{"Acme Studios", "  Café del Mar!! ", "a--b__c", "x"}
	for _, in := range inputs {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

var publicIDPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*-[a-z0-9]{6}$`)

func TestMintShape(t *testing.T) {
	id, err := Mint("Acme Studios", "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !strings.HasPrefix(id, "acme-studios-") {
		t.Fatalf("expected acme-studios- prefix, got %s", id)
	}
	if !publicIDPattern.MatchString(id) {
		t.Fatalf("public id %s does not match pattern", id)
	}
}

func TestMintPrefersCustomSlug(t *testing.T) {
	id, err := Mint("Acme Studios", "acme")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !strings.HasPrefix(id, "acme-") {
		t.Fatalf("expected acme- prefix, got %s", id)
	}
	if strings.HasPrefix(id, "acme-studios-") {
		t.Fatalf("custom slug should win over company name, got %s", id)
	}
}

func TestMintFallsBackToClient(t *testing.T) {
	for _, in := range []struct{ company, slug string }{
		{"", ""},
		{"   ", ""},
		{"!!!", "   "},
	} {
		id, err := Mint(in.company, in.slug)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		if !strings.HasPrefix(id, "client-") {
			t.Fatalf("expected client- fallback, got %s", id)
		}
		if !publicIDPattern.MatchString(id) {
			t.Fatalf("public id %s does not match pattern", id)
		}
	}
}

func TestMintSuffixVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		id, err := Mint("acme", "")
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected distinct suffixes across mints")
	}
}
