package pkgmgr

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesManifest(t *testing.T) {
	dir := t.TempDir()

	m, err := Init(dir, "myproject")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if m.Name != "myproject" {
		t.Errorf("name=%q, want myproject", m.Name)
	}

	if _, err := os.Stat(filepath.Join(dir, ManifestName)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestInitDefaultsToDirectoryName(t *testing.T) {
	dir := t.TempDir()

	m, err := Init(dir, "")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if m.Name != sanitizeName(filepath.Base(dir)) {
		t.Errorf("name=%q, want %q", m.Name, sanitizeName(filepath.Base(dir)))
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir, "first"); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, err := Init(dir, "second")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("got %v", err)
	}
}

func TestInstallPathDependency(t *testing.T) {
	libDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(libDir, "lib.clarity"), []byte("let answer = 42\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(libDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(libDir, "sub", "extra.clarity"), []byte("let extra = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	projectDir := t.TempDir()
	if _, err := Init(projectDir, "app"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := Add(projectDir, "mylib", DependencySpec{Path: libDir}); err != nil {
		t.Fatalf("add: %v", err)
	}

	installed := filepath.Join(projectDir, ModulesDir, "mylib", "lib.clarity")
	data, err := os.ReadFile(installed)
	if err != nil {
		t.Fatalf("installed file missing: %v", err)
	}
	if string(data) != "let answer = 42\n" {
		t.Errorf("installed content=%q", data)
	}
	if _, err := os.Stat(filepath.Join(projectDir, ModulesDir, "mylib", "sub", "extra.clarity")); err != nil {
		t.Errorf("nested file not copied: %v", err)
	}

	lock, err := LoadLockfile(projectDir)
	if err != nil {
		t.Fatalf("load lockfile: %v", err)
	}
	pkg, found := lock.Find("mylib")
	if !found {
		t.Fatal("mylib not in lockfile")
	}
	if pkg.Version != "local" {
		t.Errorf("version=%q, want local", pkg.Version)
	}
	if !strings.HasPrefix(pkg.Source, "path:") {
		t.Errorf("source=%q", pkg.Source)
	}
	if len(pkg.Checksum) != 64 {
		t.Errorf("checksum=%q, want 64 hex chars", pkg.Checksum)
	}
}

func TestInstallReportsProgress(t *testing.T) {
	libDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(libDir, "lib.clarity"), []byte("let x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	projectDir := t.TempDir()
	if _, err := Init(projectDir, "app"); err != nil {
		t.Fatalf("init: %v", err)
	}
	m, err := LoadManifest(projectDir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m.Dependencies["mylib"] = DependencySpec{Path: libDir}
	if err := m.Save(projectDir); err != nil {
		t.Fatalf("save: %v", err)
	}

	out := &bytes.Buffer{}
	if err := Install(projectDir, out); err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out.String(), "installed mylib local") {
		t.Errorf("progress output=%q", out.String())
	}
}

func TestInstallIsRepeatable(t *testing.T) {
	libDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(libDir, "lib.clarity"), []byte("let x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	projectDir := t.TempDir()
	if _, err := Init(projectDir, "app"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := Add(projectDir, "mylib", DependencySpec{Path: libDir}); err != nil {
		t.Fatalf("add: %v", err)
	}
	first, err := LoadLockfile(projectDir)
	if err != nil {
		t.Fatal(err)
	}

	if err := Install(projectDir, nil); err != nil {
		t.Fatalf("second install: %v", err)
	}
	second, err := LoadLockfile(projectDir)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := first.Find("mylib")
	b, _ := second.Find("mylib")
	if a.Checksum != b.Checksum {
		t.Errorf("checksum changed across installs: %q vs %q", a.Checksum, b.Checksum)
	}
}

func TestAddRejectsInvalidSpec(t *testing.T) {
	projectDir := t.TempDir()
	if _, err := Init(projectDir, "app"); err != nil {
		t.Fatalf("init: %v", err)
	}

	err := Add(projectDir, "bad", DependencySpec{})
	if err == nil || !strings.Contains(err.Error(), "exactly one of git or path") {
		t.Errorf("got %v", err)
	}
}

func TestLockfileFindAndPut(t *testing.T) {
	lock := &Lockfile{}
	lock.Put(LockedPackage{Name: "b", Version: "1"})
	lock.Put(LockedPackage{Name: "a", Version: "1"})
	lock.Put(LockedPackage{Name: "b", Version: "2"})

	if len(lock.Packages) != 2 {
		t.Fatalf("packages=%d, want 2", len(lock.Packages))
	}
	pkg, found := lock.Find("b")
	if !found || pkg.Version != "2" {
		t.Errorf("b=%+v found=%v", pkg, found)
	}
	if _, found := lock.Find("missing"); found {
		t.Error("found a package that was never put")
	}
}

func TestLockfileRoundTripSortsPackages(t *testing.T) {
	dir := t.TempDir()
	lock := &Lockfile{Root: "app"}
	lock.Put(LockedPackage{Name: "zeta", Version: "1", Source: "path:z", Checksum: "aa"})
	lock.Put(LockedPackage{Name: "alpha", Version: "1", Source: "path:a", Checksum: "bb"})
	if err := lock.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadLockfile(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Root != "app" {
		t.Errorf("root=%q", loaded.Root)
	}
	if loaded.Generated == "" {
		t.Error("generated timestamp missing")
	}
	if len(loaded.Packages) != 2 || loaded.Packages[0].Name != "alpha" || loaded.Packages[1].Name != "zeta" {
		t.Errorf("packages=%+v", loaded.Packages)
	}
}

func TestLoadLockfileMissingIsEmpty(t *testing.T) {
	lock, err := LoadLockfile(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lock.Packages) != 0 {
		t.Errorf("packages=%+v, want none", lock.Packages)
	}
}

func TestDirChecksumChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	before, err := dirChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := dirChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}
	if before == after {
		t.Error("checksum did not change with file content")
	}
}

func TestDirChecksumSkipsGitDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	before, err := dirChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644); err != nil {
		t.Fatal(err)
	}
	after, err := dirChecksum(dir)
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Error("checksum should ignore .git contents")
	}
}
