package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	appconfig "github.com/inercia/promptq/internal/config"
	"github.com/inercia/promptq/internal/script"
)

func TestDefaultConfigYAML_MatchesDefaults(t *testing.T) {
	cfg, err := appconfig.Parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("Parse(DefaultConfigYAML) error = %v", err)
	}
	if want := appconfig.Default(); !reflect.DeepEqual(cfg, want) {
		t.Errorf("embedded defaults = %+v, want %+v", cfg, want)
	}
}

func TestExamplePrompts_Parse(t *testing.T) {
	names, err := ListExamplePrompts()
	if err != nil {
		t.Fatalf("ListExamplePrompts() error = %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no embedded example prompts")
	}

	for _, name := range names {
		data, err := ExamplePromptsFS.ReadFile(ExamplePromptsDir + "/" + name)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", name, err)
		}
		f, enabled, err := script.Parse(name, data)
		if err != nil {
			t.Errorf("script.Parse(%s) error = %v", name, err)
			continue
		}
		if !enabled {
			t.Errorf("example %s is disabled", name)
		}
		if f.Prompt.Message == "" {
			t.Errorf("example %s has an empty message", name)
		}
	}
}

func TestDeployExamplePrompts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "examples")

	result, err := DeployExamplePrompts(dir, false)
	if err != nil {
		t.Fatalf("DeployExamplePrompts() error = %v", err)
	}
	names, _ := ListExamplePrompts()
	if len(result.Deployed) != len(names) || len(result.Skipped) != 0 {
		t.Fatalf("first deploy = %+v, want %d deployed", result, len(names))
	}

	// Local edits survive a second deploy.
	edited := filepath.Join(dir, names[0])
	if err := os.WriteFile(edited, []byte("mine"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	result, err = DeployExamplePrompts(dir, false)
	if err != nil {
		t.Fatalf("DeployExamplePrompts() error = %v", err)
	}
	if len(result.Deployed) != 0 || len(result.Skipped) != len(names) {
		t.Errorf("second deploy = %+v, want everything skipped", result)
	}
	if data, _ := os.ReadFile(edited); string(data) != "mine" {
		t.Errorf("edited file overwritten: %q", data)
	}

	result, err = DeployExamplePrompts(dir, true)
	if err != nil {
		t.Fatalf("DeployExamplePrompts(force) error = %v", err)
	}
	if len(result.Deployed) != len(names) {
		t.Errorf("forced deploy = %+v, want %d deployed", result, len(names))
	}
	if data, _ := os.ReadFile(edited); string(data) == "mine" {
		t.Error("forced deploy kept the edited file")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	written, err := WriteDefaultConfig(path, false)
	if err != nil || !written {
		t.Fatalf("WriteDefaultConfig() = %v, %v; want true, nil", written, err)
	}

	written, err = WriteDefaultConfig(path, false)
	if err != nil || written {
		t.Errorf("second WriteDefaultConfig() = %v, %v; want false, nil", written, err)
	}

	written, err = WriteDefaultConfig(path, true)
	if err != nil || !written {
		t.Errorf("forced WriteDefaultConfig() = %v, %v; want true, nil", written, err)
	}
}
