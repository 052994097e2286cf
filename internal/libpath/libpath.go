// Package libpath locates the coreasm runtime-library directory. The ec
// build command adds it to the directories the include resolver searches
// for bare "see" names; the generated assembly carries its runtime
// inline and contains no %include directives. Disk
// layout and the final nasm/linker invocation are out-of-scope external
// collaborators (spec.md §6); this package only implements the search
// order itself, so a CLI wrapper (or the ec build command, see cmd/ec)
// has a single place that knows how EC_CORE_PATH, the XDG config file,
// and the fixed system paths fit together.
package libpath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// fixedPaths are tried, in order, after EC_CORE_PATH and the config file
// have both come up empty.
var fixedPaths = []string{
	"/usr/local/share/ec/coreasm",
	"/usr/share/ec/coreasm",
	"/opt/ec/coreasm",
}

// config is the shape of both the YAML and key=value config forms.
type config struct {
	CorePath string `yaml:"core_path"`
}

// Resolve runs the five-step search order from spec.md §6 and returns the
// coreasm directory it finds. execDir is the running
// executable's directory (os.Executable, injected so callers/tests don't
// depend on the actual binary location); wd is the process's working
// directory, used for the final "./coreasm" fallback.
func Resolve(execDir, wd string) (string, bool) {
	if p, ok := os.LookupEnv("EC_CORE_PATH"); ok && p != "" {
		if dir, ok := asCoreDir(p); ok {
			return dir, true
		}
	}

	if cfgPath, ok := configFilePath(); ok {
		if cfg, err := loadConfig(cfgPath); err == nil && cfg.CorePath != "" {
			if dir, ok := asCoreDir(cfg.CorePath); ok {
				return dir, true
			}
		}
	}

	for _, p := range fixedPaths {
		if isDir(p) {
			return p, true
		}
	}

	if dir, ok := walkUpForCoreasm(execDir); ok {
		return dir, true
	}

	local := filepath.Join(wd, "coreasm")
	if isDir(local) {
		return local, true
	}

	return "", false
}

// asCoreDir interprets p the way EC_CORE_PATH and core_path both do: p may
// either be the coreasm directory itself, or a parent directory containing
// one.
func asCoreDir(p string) (string, bool) {
	if filepath.Base(p) == "coreasm" && isDir(p) {
		return p, true
	}
	candidate := filepath.Join(p, "coreasm")
	if isDir(candidate) {
		return candidate, true
	}
	if isDir(p) {
		return p, true
	}
	return "", false
}

// walkUpForCoreasm walks upward from dir looking for a coreasm/ sibling,
// stopping at the filesystem root.
func walkUpForCoreasm(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, "coreasm")
		if isDir(candidate) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// configFilePath finds $XDG_CONFIG_HOME/ec/config (or ~/.config/ec/config)
// per spec.md §6, preferring a YAML sibling (config.yaml) if present since
// SPEC_FULL.md §A extends the loader to accept either form.
func configFilePath() (string, bool) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "ec")
	if yamlPath := filepath.Join(dir, "config.yaml"); fileExists(yamlPath) {
		return yamlPath, true
	}
	if p := filepath.Join(dir, "config"); fileExists(p) {
		return p, true
	}
	return "", false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// loadConfig parses path as YAML when its extension or leading content
// looks like YAML, otherwise as the plain "key=value" scanner form.
func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	if looksLikeYAML(path, data) {
		var cfg config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return config{}, err
		}
		return cfg, nil
	}
	return parseKeyValue(data), nil
}

func looksLikeYAML(path string, data []byte) bool {
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		return true
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.Contains(line, ":") && !strings.Contains(line, "=")
	}
	return false
}

// parseKeyValue scans "key=value" lines, ignoring blanks and #-comments,
// mirroring the plain config form spec.md §6 describes.
func parseKeyValue(data []byte) config {
	var cfg config
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "core_path" {
			cfg.CorePath = value
		}
	}
	return cfg
}
