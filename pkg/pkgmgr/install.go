package pkgmgr

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Init writes a fresh manifest into dir. It refuses to overwrite an
// existing one.
func Init(dir, name string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s already exists", ManifestName)
	}
	if name == "" {
		abs, err := filepath.Abs(dir)
		if err == nil {
			name = filepath.Base(abs)
		}
	}
	m := NewManifest(name)
	if err := m.Save(dir); err != nil {
		return nil, err
	}
	return m, nil
}

// Add records a dependency in the manifest and installs it.
func Add(dir, name string, spec DependencySpec) error {
	if err := spec.validate(name); err != nil {
		return err
	}
	m, err := LoadManifest(dir)
	if err != nil {
		return err
	}
	m.Dependencies[sanitizeName(name)] = spec
	if err := m.Save(dir); err != nil {
		return err
	}
	return Install(dir, nil)
}

// Install resolves every manifest dependency into clarity_modules/ and
// rewrites the lockfile. Progress lines go to out when it is non-nil.
func Install(dir string, out io.Writer) error {
	m, err := LoadManifest(dir)
	if err != nil {
		return err
	}
	lock, err := LoadLockfile(dir)
	if err != nil {
		return err
	}
	lock.Root = m.Name

	modulesDir := filepath.Join(dir, ModulesDir)
	if err := os.MkdirAll(modulesDir, 0o755); err != nil {
		return err
	}

	for _, name := range m.DependencyNames() {
		spec := m.Dependencies[name]
		target := filepath.Join(modulesDir, name)
		var pkg LockedPackage
		var installErr error
		if spec.Git != "" {
			pkg, installErr = installGit(name, spec, target)
		} else {
			pkg, installErr = installPath(dir, name, spec, target)
		}
		if installErr != nil {
			return fmt.Errorf("install %s: %w", name, installErr)
		}
		lock.Put(pkg)
		if out != nil {
			fmt.Fprintf(out, "installed %s %s\n", pkg.Name, pkg.Version)
		}
	}

	return lock.Save(dir)
}

// installGit clones the repository into the target directory, checking
// out the pinned tag when one is given.
func installGit(name string, spec DependencySpec, target string) (LockedPackage, error) {
	if err := os.RemoveAll(target); err != nil {
		return LockedPackage{}, err
	}

	repo, err := git.PlainClone(target, false, &git.CloneOptions{URL: spec.Git})
	if err != nil {
		return LockedPackage{}, fmt.Errorf("git clone %s: %w", spec.Git, err)
	}

	version := "HEAD"
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision("refs/tags/" + tag))
		if err != nil {
			return LockedPackage{}, fmt.Errorf("resolve tag %s: %w", tag, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return LockedPackage{}, err
		}
		if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
			return LockedPackage{}, fmt.Errorf("git checkout %s: %w", tag, err)
		}
		version = tag
	}

	head, err := repo.Head()
	commit := ""
	if err == nil {
		commit = head.Hash().String()
	}
	if version == "HEAD" && commit != "" {
		version = commit[:12]
	}

	checksum, err := dirChecksum(target)
	if err != nil {
		return LockedPackage{}, err
	}
	return LockedPackage{
		Name:     sanitizeName(name),
		Version:  version,
		Source:   fmt.Sprintf("git+%s@%s", spec.Git, commit),
		Checksum: checksum,
	}, nil
}

// installPath copies a local directory into the target.
func installPath(projectDir, name string, spec DependencySpec, target string) (LockedPackage, error) {
	src := spec.Path
	if !filepath.IsAbs(src) {
		src = filepath.Join(projectDir, src)
	}
	info, err := os.Stat(src)
	if err != nil {
		return LockedPackage{}, err
	}
	if !info.IsDir() {
		return LockedPackage{}, fmt.Errorf("%s is not a directory", src)
	}
	if err := os.RemoveAll(target); err != nil {
		return LockedPackage{}, err
	}
	if err := copyDir(src, target); err != nil {
		return LockedPackage{}, err
	}
	checksum, err := dirChecksum(target)
	if err != nil {
		return LockedPackage{}, err
	}
	return LockedPackage{
		Name:     sanitizeName(name),
		Version:  "local",
		Source:   "path:" + spec.Path,
		Checksum: checksum,
	}, nil
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
