package pkgmgr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m := NewManifest("demo")
	m.Dependencies["strutils"] = DependencySpec{Git: "https://example.com/strutils.git", Tag: "v1.2.0"}
	m.Dependencies["local_lib"] = DependencySpec{Path: "../local_lib"}
	if err := m.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadManifest(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "demo" {
		t.Errorf("name=%q, want demo", loaded.Name)
	}
	if loaded.Version != "0.1.0" {
		t.Errorf("version=%q, want 0.1.0", loaded.Version)
	}
	if len(loaded.Dependencies) != 2 {
		t.Fatalf("dependencies=%d, want 2", len(loaded.Dependencies))
	}
	spec := loaded.Dependencies["strutils"]
	if spec.Git != "https://example.com/strutils.git" || spec.Tag != "v1.2.0" {
		t.Errorf("strutils spec wrong: %+v", spec)
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	content := "name: demo\nversion: 0.1.0\nunknown_key: nope\n"
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadManifest(dir); err == nil {
		t.Error("expected error for unknown field, got none")
	}
}

func TestLoadManifestRequiresName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte("version: 0.1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadManifest(dir)
	if err == nil || !strings.Contains(err.Error(), "missing a name") {
		t.Errorf("got %v", err)
	}
}

func TestDependencySpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    DependencySpec
		wantErr string
	}{
		{"git only", DependencySpec{Git: "https://example.com/a.git"}, ""},
		{"git with tag", DependencySpec{Git: "https://example.com/a.git", Tag: "v1.0.0"}, ""},
		{"path only", DependencySpec{Path: "../lib"}, ""},
		{"neither", DependencySpec{}, "exactly one of git or path"},
		{"both", DependencySpec{Git: "https://example.com/a.git", Path: "../lib"}, "exactly one of git or path"},
		{"tag without git", DependencySpec{Path: "../lib", Tag: "v1.0.0"}, "tag only applies to git"},
	}

	for _, tt := range tests {
		err := tt.spec.validate(tt.name)
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: got %v, want error containing %q", tt.name, err, tt.wantErr)
		}
	}
}

func TestDependencyNamesSorted(t *testing.T) {
	m := NewManifest("demo")
	m.Dependencies["zeta"] = DependencySpec{Path: "z"}
	m.Dependencies["alpha"] = DependencySpec{Path: "a"}
	m.Dependencies["mid"] = DependencySpec{Path: "m"}

	names := m.DependencyNames()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d]=%q, want %q", i, names[i], name)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"my-pkg", "my-pkg"},
		{"my pkg!", "my_pkg_"},
		{"  spaced  ", "spaced"},
		{"", "package"},
	}

	for _, tt := range tests {
		if got := sanitizeName(tt.input); got != tt.expected {
			t.Errorf("sanitizeName(%q)=%q, want %q", tt.input, got, tt.expected)
		}
	}
}
