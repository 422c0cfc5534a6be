package appdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// useDir points DirEnv at dir for the duration of the test.
func useDir(t *testing.T, dir string) {
	t.Helper()
	t.Setenv(DirEnv, dir)
	ResetCache()
	t.Cleanup(ResetCache)
}

func TestDir_EnvOverride(t *testing.T) {
	customDir := t.TempDir()
	useDir(t, customDir)

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if dir != customDir {
		t.Errorf("Dir() = %q, want %q", dir, customDir)
	}
}

func TestDir_DefaultPath(t *testing.T) {
	useDir(t, "")

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if !strings.Contains(dir, "promptq") {
		t.Errorf("Dir() = %q, expected path to contain 'promptq'", dir)
	}
}

func TestDir_Cached(t *testing.T) {
	first := t.TempDir()
	useDir(t, first)

	if _, err := Dir(); err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	os.Setenv(DirEnv, t.TempDir())

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error = %v", err)
	}
	if dir != first {
		t.Errorf("Dir() = %q, want cached %q", dir, first)
	}
}

func TestEnsureDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "promptq-test")
	useDir(t, root)

	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("temp dir should not exist initially")
	}

	if err := EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(root, SpoolDirName))
	if err != nil {
		t.Fatalf("spool dir does not exist after EnsureDir(): %v", err)
	}
	if !info.IsDir() {
		t.Error("spool path is not a directory")
	}
}

func TestPaths(t *testing.T) {
	customDir := t.TempDir()
	useDir(t, customDir)

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"ConfigPath", ConfigPath, ConfigFileName},
		{"SpoolDir", SpoolDir, SpoolDirName},
		{"LogPath", LogPath, LogFileName},
	}
	for _, tt := range tests {
		got, err := tt.fn()
		if err != nil {
			t.Fatalf("%s() error = %v", tt.name, err)
		}
		if want := filepath.Join(customDir, tt.want); got != want {
			t.Errorf("%s() = %q, want %q", tt.name, got, want)
		}
	}
}
