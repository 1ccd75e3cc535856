package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettings_MissingFileYieldsDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if len(settings.SenderAllowlist) == 0 {
		t.Error("expected default allowlist")
	}
	if !settings.SenderAllowed("Bloomberg Media <noreply@bloomberg.com>") {
		t.Error("default allowlist should match Bloomberg")
	}
}

func TestLoadSettings_EmptyPathYieldsDefaults(t *testing.T) {
	settings, err := LoadSettings("")
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if !settings.SenderAllowed("reuters daily briefing") {
		t.Error("allowlist match should be case-insensitive")
	}
	if settings.SenderAllowed("Random Newsletter") {
		t.Error("unlisted sender should be rejected")
	}
}

func TestLoadSettings_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := `
senderAllowlist:
  - Acme Daily
keywordExclusions:
  sources:
    - CNN
    - Bloomberg
  generic:
    - Breaking News
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings returned error: %v", err)
	}
	if !settings.SenderAllowed("Acme Daily") {
		t.Error("configured sender should be allowed")
	}
	if settings.SenderAllowed("Bloomberg") {
		t.Error("file allowlist should replace defaults")
	}

	exclusions := settings.AllExclusions()
	if len(exclusions) != 3 {
		t.Fatalf("expected 3 flattened exclusions, got %v", exclusions)
	}
	// Sorted output keeps prompt construction deterministic.
	if exclusions[0] != "Bloomberg" || exclusions[2] != "CNN" {
		t.Errorf("unexpected exclusion order: %v", exclusions)
	}
}

func TestLoadSettings_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("senderAllowlist: {broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for malformed settings file")
	}
}
