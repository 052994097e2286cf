package libpath

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveReturnsFalseWhenNothingFound(t *testing.T) {
	t.Setenv("EC_CORE_PATH", "")
	os.Unsetenv("EC_CORE_PATH")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, ok := Resolve(t.TempDir(), t.TempDir())
	if ok {
		t.Fatalf("expected no coreasm dir to be found, got %s", dir)
	}
}

func TestResolveEnvVarPointsAtParent(t *testing.T) {
	root := t.TempDir()
	core := filepath.Join(root, "coreasm")
	if err := os.MkdirAll(core, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EC_CORE_PATH", root)

	dir, ok := Resolve(t.TempDir(), t.TempDir())
	if !ok || dir != core {
		t.Fatalf("expected %s, got %s (ok=%v)", core, dir, ok)
	}
}

func TestResolveEnvVarPointsDirectlyAtCoreasm(t *testing.T) {
	core := filepath.Join(t.TempDir(), "coreasm")
	if err := os.MkdirAll(core, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EC_CORE_PATH", core)

	dir, ok := Resolve(t.TempDir(), t.TempDir())
	if !ok || dir != core {
		t.Fatalf("expected %s, got %s (ok=%v)", core, dir, ok)
	}
}

func TestResolveWalksUpFromExecDir(t *testing.T) {
	os.Unsetenv("EC_CORE_PATH")
	root := t.TempDir()
	core := filepath.Join(root, "coreasm")
	if err := os.MkdirAll(core, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "bin", "sub")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir, ok := Resolve(nested, t.TempDir())
	if !ok || dir != core {
		t.Fatalf("expected %s, got %s (ok=%v)", core, dir, ok)
	}
}

func TestResolveWorkingDirectoryFallback(t *testing.T) {
	os.Unsetenv("EC_CORE_PATH")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd := t.TempDir()
	core := filepath.Join(wd, "coreasm")
	if err := os.MkdirAll(core, 0o755); err != nil {
		t.Fatal(err)
	}

	dir, ok := Resolve(t.TempDir(), wd)
	if !ok || dir != core {
		t.Fatalf("expected %s, got %s (ok=%v)", core, dir, ok)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "ec")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	core := filepath.Join(dir, "lib", "coreasm")
	if err := os.MkdirAll(core, 0o755); err != nil {
		t.Fatal(err)
	}
	yamlPath := filepath.Join(cfgDir, "config.yaml")
	content := "core_path: " + filepath.Join(dir, "lib") + "\n"
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	os.Unsetenv("EC_CORE_PATH")
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, ok := Resolve(t.TempDir(), t.TempDir())
	if !ok || got != core {
		t.Fatalf("expected %s, got %s (ok=%v)", core, got, ok)
	}
}

func TestLoadConfigKeyValue(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "ec")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	core := filepath.Join(dir, "lib", "coreasm")
	if err := os.MkdirAll(core, 0o755); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(cfgDir, "config")
	content := "# comment\ncore_path=" + filepath.Join(dir, "lib") + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	os.Unsetenv("EC_CORE_PATH")
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, ok := Resolve(t.TempDir(), t.TempDir())
	if !ok || got != core {
		t.Fatalf("expected %s, got %s (ok=%v)", core, got, ok)
	}
}
