package urlutil

import "testing"

func TestCleanKeyword(t *testing.T) {
	got, ok := CleanKeyword("  rabat   på  ")
	if !ok || got != "rabat på" {
		t.Fatalf("got %q %v", got, ok)
	}
	if _, ok := CleanKeyword("   "); ok {
		t.Fatal("expected empty keyword to be dropped")
	}
}

func TestContainsWordBoundary(t *testing.T) {
	if !ContainsWordBoundary("Store rabat hos Netto", "rabat") {
		t.Fatal("expected match")
	}
	if ContainsWordBoundary("Storerabathosnetto", "rabat") {
		t.Fatal("expected no match across word boundary")
	}
}
