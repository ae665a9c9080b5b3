package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ProjectFileName is looked up in the directory of the first input and its
// parents.
const ProjectFileName = "xcc.toml"

type Project struct {
	Path     string          `toml:"-"`
	Build    BuildSection    `toml:"build"`
	Warnings map[string]bool `toml:"warnings"`
	Features map[string]bool `toml:"features"`

	hasStd    bool
	hasTarget bool
}

type BuildSection struct {
	Std        string   `toml:"std"`
	Target     string   `toml:"target"`
	Output     string   `toml:"output"`
	LinkerArgs []string `toml:"linker_args"`
	Libs       []string `toml:"libs"`
}

func FindProjectFile(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func LoadProjectFile(path string) (*Project, error) {
	var p Project
	meta, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key '%s'", path, undecoded[0])
	}
	p.Path = path
	p.hasStd = meta.IsDefined("build", "std") && strings.TrimSpace(p.Build.Std) != ""
	p.hasTarget = meta.IsDefined("build", "target") && strings.TrimSpace(p.Build.Target) != ""
	return &p, nil
}

// Apply copies the project settings into c. Command-line flags are applied
// afterwards and take precedence.
func (c *Config) Apply(p *Project) error {
	if p.hasStd {
		if err := c.ApplyStd(p.Build.Std); err != nil {
			return fmt.Errorf("%s: %w", p.Path, err)
		}
	}
	for name, on := range p.Warnings {
		w, ok := c.WarningMap[name]
		if !ok {
			return fmt.Errorf("%s: unknown warning '%s'", p.Path, name)
		}
		c.SetWarning(w, on)
	}
	for name, on := range p.Features {
		f, ok := c.FeatureMap[name]
		if !ok {
			return fmt.Errorf("%s: unknown feature '%s'", p.Path, name)
		}
		c.SetFeature(f, on)
	}
	c.LinkerArgs = append(c.LinkerArgs, p.Build.LinkerArgs...)
	c.LibRequests = append(c.LibRequests, p.Build.Libs...)
	return nil
}

func (p *Project) Target() (string, bool) { return p.Build.Target, p.hasTarget }
