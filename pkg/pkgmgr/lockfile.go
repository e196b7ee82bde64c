package pkgmgr

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LockName is the lockfile written next to the manifest.
const LockName = "clarity.lock"

// Lockfile records what install actually resolved, so repeat installs
// are reproducible.
type Lockfile struct {
	Root      string          `yaml:"root"`
	Generated string          `yaml:"generated"`
	Packages  []LockedPackage `yaml:"packages"`
}

// LockedPackage is one resolved dependency entry.
type LockedPackage struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   string `yaml:"source"`
	Checksum string `yaml:"checksum"`
}

// LoadLockfile parses clarity.lock from a project directory. A missing
// lockfile is not an error; install creates it.
func LoadLockfile(dir string) (*Lockfile, error) {
	path := filepath.Join(dir, LockName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Lockfile{}, nil
		}
		return nil, err
	}
	var lock Lockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", path, err)
	}
	lock.normalize()
	return &lock, nil
}

// Save serialises the lockfile, refreshing the timestamp.
func (l *Lockfile) Save(dir string) error {
	l.Generated = time.Now().UTC().Format(time.RFC3339)
	l.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("lockfile: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	path := filepath.Join(dir, LockName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	return nil
}

// Find returns the locked entry for a package, if present.
func (l *Lockfile) Find(name string) (LockedPackage, bool) {
	for _, pkg := range l.Packages {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return LockedPackage{}, false
}

// Put inserts or replaces the entry for a package.
func (l *Lockfile) Put(pkg LockedPackage) {
	for i, existing := range l.Packages {
		if existing.Name == pkg.Name {
			l.Packages[i] = pkg
			return
		}
	}
	l.Packages = append(l.Packages, pkg)
}

func (l *Lockfile) normalize() {
	l.Root = strings.TrimSpace(l.Root)
	sort.SliceStable(l.Packages, func(i, j int) bool {
		return l.Packages[i].Name < l.Packages[j].Name
	})
}

// dirChecksum hashes every file under path into one digest. File order
// is fixed by the walk, which visits names in lexical order.
func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			rel = filepath.Base(p)
		}
		h.Write([]byte(rel))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
