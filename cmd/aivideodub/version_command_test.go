package main

import "testing"

func TestVersionCommandPrintsVersion(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "aivideodub")
}

func TestResolveVersionPrefersBuildStamp(t *testing.T) {
	old := version
	version = "1.2.3"
	t.Cleanup(func() { version = old })
	if got := resolveVersion(); got != "1.2.3" {
		t.Fatalf("resolveVersion = %q, want stamped version", got)
	}
}

func TestResolveVersionFallsBackToDev(t *testing.T) {
	old := version
	version = ""
	t.Cleanup(func() { version = old })
	if got := resolveVersion(); got == "" {
		t.Fatal("resolveVersion returned empty string")
	}
}
