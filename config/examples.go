package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DeployResult contains the result of deploying embedded files.
type DeployResult struct {
	// Deployed is the list of files that were written.
	Deployed []string
	// Skipped is the list of files that already existed.
	Skipped []string
	// Errors is the list of per-file failures.
	Errors []error
}

// DeployExamplePrompts copies the example prompt files to targetDir.
// Existing files are skipped unless force is set.
func DeployExamplePrompts(targetDir string, force bool) (*DeployResult, error) {
	result := &DeployResult{}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create target directory %s: %w", targetDir, err)
	}

	names, err := ListExamplePrompts()
	if err != nil {
		return nil, err
	}

	for _, filename := range names {
		dstPath := filepath.Join(targetDir, filename)

		if _, err := os.Stat(dstPath); err == nil && !force {
			result.Skipped = append(result.Skipped, filename)
			continue
		}

		content, err := fs.ReadFile(ExamplePromptsFS, ExamplePromptsDir+"/"+filename)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to read %s: %w", filename, err))
			continue
		}

		if err := os.WriteFile(dstPath, content, 0644); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to write %s: %w", filename, err))
			continue
		}

		result.Deployed = append(result.Deployed, filename)
	}

	return result, nil
}

// WriteDefaultConfig writes DefaultConfigYAML to path unless a file is
// already there. It reports whether the file was written.
func WriteDefaultConfig(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// ListExamplePrompts returns the embedded example file names in lexical order.
func ListExamplePrompts() ([]string, error) {
	entries, err := fs.ReadDir(ExamplePromptsFS, ExamplePromptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}

	var filenames []string
	for _, entry := range entries {
		if !entry.IsDir() {
			filenames = append(filenames, entry.Name())
		}
	}
	return filenames, nil
}
