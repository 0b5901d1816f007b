package conda

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Meta holds the package section of a recipe's meta.yaml. Most recipes
// template these values with jinja so both fields are best effort.
type Meta struct {
	Name    string
	Version string
}

// ReadMeta peeks at the meta.yaml inside the given recipe directory.
// Recipes are jinja templates, not plain YAML, so this never fails: a
// recipe we can't parse simply yields an empty Meta.
func ReadMeta(dir string) Meta {
	raw, err := os.ReadFile(filepath.Join(dir, "meta.yaml"))
	if err != nil {
		return Meta{}
	}

	var doc struct {
		Package struct {
			Name    string `yaml:"name"`
			Version string `yaml:"version"`
		} `yaml:"package"`
	}

	if err := yaml.Unmarshal(stripJinja(raw), &doc); err != nil {
		return Meta{}
	}

	return Meta{
		Name:    strings.TrimSpace(doc.Package.Name),
		Version: strings.TrimSpace(doc.Package.Version),
	}
}

// stripJinja removes {% ... %} lines and {{ ... }} expressions so the
// remainder parses as YAML.
func stripJinja(raw []byte) []byte {
	lines := strings.Split(string(raw), "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		if strings.Contains(line, "{%") {
			continue
		}

		for {
			start := strings.Index(line, "{{")
			if start < 0 {
				break
			}

			end := strings.Index(line[start:], "}}")
			if end < 0 {
				line = line[:start]
				break
			}

			line = line[:start] + line[start+end+2:]
		}

		kept = append(kept, line)
	}

	return []byte(strings.Join(kept, "\n"))
}

// FindRoot walks upwards from start until it finds the directory that
// contains the conda recipes.
func FindRoot(start string) (string, error) {
	path, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		marker := filepath.Join(path, TaskPortal, "meta.yaml")
		_, err := os.Stat(marker)
		if err == nil {
			return path, nil
		}
		if !eris.Is(err, os.ErrNotExist) {
			return "", eris.Wrapf(err, "failed to check %s", marker)
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.Errorf("no directory containing the %s recipe found above %s", TaskPortal, start)
		}

		path = parent
	}
}
