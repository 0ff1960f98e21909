// Package manifest reads and rewrites the two places a Python package records
// its version: [project].version in pyproject.toml and the __version__
// constant in the package entry module. Rewrites touch only the version value
// and keep the rest of each file byte-for-byte.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/pelletier/go-toml/v2"

	"shipwright/internal/services"
)

var (
	// ErrVersionNotFound reports a manifest that lacks the expected version field.
	ErrVersionNotFound = errors.New("version field not found")

	tableHeader   = regexp.MustCompile(`^\s*\[\[?\s*([^\]]+?)\s*\]\]?\s*(#.*)?$`)
	pyprojectLine = regexp.MustCompile(`^(\s*version\s*=\s*)(["'])([^"']*)(["'])(.*)$`)
	moduleLine    = regexp.MustCompile(`(?m)^(__version__\s*(?::\s*str\s*)?=\s*)(["'])([^"']*)(["'])`)
)

// Files locates the two version-bearing manifests.
type Files struct {
	Pyproject   string
	VersionFile string
}

// Versions returns the version currently recorded in each manifest.
func (f Files) Versions() (pyproject, module string, err error) {
	if pyproject, err = ReadPyprojectVersion(f.Pyproject); err != nil {
		return "", "", err
	}
	if module, err = ReadModuleVersion(f.VersionFile); err != nil {
		return "", "", err
	}
	return pyproject, module, nil
}

// HasVersion reports whether both manifests already carry number.
func (f Files) HasVersion(number string) (bool, error) {
	py, mod, err := f.Versions()
	if err != nil {
		return false, err
	}
	return py == number && mod == number, nil
}

// SetVersion rewrites both manifests to number. Both files are validated
// before either is written.
func (f Files) SetVersion(number string) error {
	pyData, err := readManifest(f.Pyproject)
	if err != nil {
		return err
	}
	modData, err := readManifest(f.VersionFile)
	if err != nil {
		return err
	}
	newPy, err := rewritePyproject(f.Pyproject, pyData, number)
	if err != nil {
		return err
	}
	newMod, err := rewriteModule(f.VersionFile, modData, number)
	if err != nil {
		return err
	}
	if err := writeManifest(f.Pyproject, newPy); err != nil {
		return err
	}
	return writeManifest(f.VersionFile, newMod)
}

// ReadPyprojectVersion returns [project].version from the manifest at path.
func ReadPyprojectVersion(path string) (string, error) {
	data, err := readManifest(path)
	if err != nil {
		return "", err
	}
	var doc struct {
		Project struct {
			Version string `toml:"version"`
		} `toml:"project"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return "", services.Wrap(services.ErrFatalStep, "", "read manifest", path, err)
	}
	if doc.Project.Version == "" {
		return "", services.Wrap(services.ErrFatalStep, "", "read manifest", path+": [project].version", ErrVersionNotFound)
	}
	return doc.Project.Version, nil
}

// ReadModuleVersion returns the __version__ string assigned in path.
func ReadModuleVersion(path string) (string, error) {
	data, err := readManifest(path)
	if err != nil {
		return "", err
	}
	m := moduleLine.FindSubmatch(data)
	if m == nil {
		return "", services.Wrap(services.ErrFatalStep, "", "read manifest", path+": __version__", ErrVersionNotFound)
	}
	return string(m[3]), nil
}

func rewritePyproject(path string, data []byte, number string) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrFatalStep, "", "rewrite manifest", path, err)
	}

	lines := bytes.SplitAfter(data, []byte("\n"))
	section := ""
	replaced := false
	for i, line := range lines {
		body, eol := splitEOL(line)
		if m := tableHeader.FindSubmatch(body); m != nil {
			section = string(m[1])
			continue
		}
		if section != "project" {
			continue
		}
		m := pyprojectLine.FindSubmatch(body)
		if m == nil {
			continue
		}
		var buf bytes.Buffer
		buf.Write(m[1])
		buf.Write(m[2])
		buf.WriteString(number)
		buf.Write(m[4])
		buf.Write(m[5])
		buf.Write(eol)
		lines[i] = buf.Bytes()
		replaced = true
		break
	}
	if !replaced {
		return nil, services.Wrap(services.ErrFatalStep, "", "rewrite manifest", path+": [project].version", ErrVersionNotFound)
	}
	return bytes.Join(lines, nil), nil
}

func rewriteModule(path string, data []byte, number string) ([]byte, error) {
	loc := moduleLine.FindSubmatchIndex(data)
	if loc == nil {
		return nil, services.Wrap(services.ErrFatalStep, "", "rewrite manifest", path+": __version__", ErrVersionNotFound)
	}
	// loc[6]:loc[7] is the quoted value.
	var buf bytes.Buffer
	buf.Grow(len(data) + len(number))
	buf.Write(data[:loc[6]])
	buf.WriteString(number)
	buf.Write(data[loc[7]:])
	return buf.Bytes(), nil
}

func splitEOL(line []byte) (body, eol []byte) {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return line[:len(line)-2], line[len(line)-2:]
	case bytes.HasSuffix(line, []byte("\n")):
		return line[:len(line)-1], line[len(line)-1:]
	}
	return line, nil
}

func readManifest(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrFatalStep, "", "read manifest", path, err)
	}
	return data, nil
}

func writeManifest(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrFatalStep, "", "write manifest", path, err)
	}
	if err := os.WriteFile(path, data, info.Mode().Perm()); err != nil {
		return services.Wrap(services.ErrFatalStep, "", "write manifest", path, fmt.Errorf("write: %w", err))
	}
	return nil
}
