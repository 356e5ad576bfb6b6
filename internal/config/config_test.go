package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")

	cfg := &Config{
		RemoteURL:     "https://example.com/repo.git",
		RemoteName:    "origin",
		Branch:        "main",
		LocalPath:     filepath.Join(dir, "store"),
		PollInterval:  2 * time.Second,
		LeaseDuration: 30 * time.Second,
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *cfg {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, cfg)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := []*Config{
		{},
		{RemoteURL: "x"},
		{RemoteURL: "x", RemoteName: "origin"},
		{RemoteURL: "x", RemoteName: "origin", Branch: "main"},
		{RemoteURL: "x", RemoteName: "origin", Branch: "main", LocalPath: "/tmp/x"},
		{RemoteURL: "x", RemoteName: "origin", Branch: "main", LocalPath: "/tmp/x", PollInterval: time.Second},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: Validate() = nil, want error for %+v", i, c)
		}
	}
}

func TestDefaultIsValidOnceRemoteSet(t *testing.T) {
	cfg := Default("/tmp/store")
	cfg.RemoteURL = "https://example.com/repo.git"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() on defaulted config: %v", err)
	}
}

// TestYAMLMarshalRoundTrip exercises the struct's yaml tags directly,
// independent of the filesystem round trip above.
func TestYAMLMarshalRoundTrip(t *testing.T) {
	cfg := Config{
		RemoteURL:     "https://example.com/repo.git",
		RemoteName:    "origin",
		Branch:        "main",
		LocalPath:     "/tmp/store",
		PollInterval:  2 * time.Second,
		LeaseDuration: 30 * time.Second,
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(cfg, parsed) {
		t.Errorf("round-trip mismatch:\noriginal: %+v\nparsed:   %+v", cfg, parsed)
	}
	if !strings.Contains(string(data), "remote_url:") {
		t.Errorf("expected field %q in YAML output, got:\n%s", "remote_url", string(data))
	}
}
