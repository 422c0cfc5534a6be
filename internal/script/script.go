// Package script parses prompt files: markdown documents with optional YAML
// front matter describing the prompt's actions.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	"github.com/inercia/promptq/internal/promptqueue"
)

// Extension is the file extension of prompt files.
const Extension = ".md"

// ErrNoPrompts is returned when the given paths contain no prompt files.
var ErrNoPrompts = errors.New("no prompt files found")

// File is a parsed prompt file.
type File struct {
	// Path is the file the prompt was read from.
	Path string
	// Name is the file name without extension.
	Name string
	// Prompt is ready to be passed to Queue.Ask.
	Prompt promptqueue.Prompt
}

// frontMatter is the YAML header of a prompt file.
type frontMatter struct {
	Type    string               `yaml:"type"`
	Default string               `yaml:"default"`
	Actions []promptqueue.Action `yaml:"actions"`
	// Enabled defaults to true when absent.
	Enabled *bool `yaml:"enabled"`
}

const frontMatterDelimiter = "---"

// Parse parses a prompt file. The format is:
//
//	---
//	type: warning
//	default: no
//	actions:
//	  - id: yes
//	    label: Overwrite
//	  - id: no
//	    label: Keep
//	---
//
//	The file **config.yaml** already exists.
//
// Without front matter the whole file is the message and the prompt has no
// actions. An unterminated header is treated as part of the message.
func Parse(path string, data []byte) (*File, bool, error) {
	var fm frontMatter
	content := string(data)
	message := strings.TrimSpace(content)

	if strings.HasPrefix(message, frontMatterDelimiter) {
		lines := strings.Split(content, "\n")
		start, end := -1, -1
		for i, line := range lines {
			if strings.TrimSpace(line) != frontMatterDelimiter {
				continue
			}
			if start < 0 {
				start = i
				continue
			}
			end = i
			break
		}

		if end > 0 {
			header := strings.Join(lines[start+1:end], "\n")
			if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
				return nil, false, fmt.Errorf("failed to parse front matter in %s: %w", path, err)
			}
			message = strings.TrimSpace(strings.Join(lines[end+1:], "\n"))
		}
	}

	msgType, err := promptqueue.ParseMessageType(fm.Type)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}

	seen := make(map[string]bool, len(fm.Actions))
	for i, a := range fm.Actions {
		if a.ID == "" {
			return nil, false, fmt.Errorf("%s: action %d has no id", path, i+1)
		}
		if seen[a.ID] {
			return nil, false, fmt.Errorf("%s: duplicate action id %q", path, a.ID)
		}
		seen[a.ID] = true
		if a.Label == "" {
			fm.Actions[i].Label = a.ID
		}
	}
	if fm.Default != "" && !seen[fm.Default] {
		return nil, false, fmt.Errorf("%s: default action %q is not one of the actions", path, fm.Default)
	}

	base := filepath.Base(path)
	f := &File{
		Path: path,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Prompt: promptqueue.Prompt{
			Message:       message,
			Actions:       fm.Actions,
			Type:          msgType,
			DefaultAction: fm.Default,
		},
	}
	enabled := fm.Enabled == nil || *fm.Enabled
	return f, enabled, nil
}

// Load reads and parses a single prompt file. Disabled files are returned
// like any other; only directory loading skips them.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	f, _, err := Parse(path, data)
	return f, err
}

// LoadDir loads every enabled prompt file directly inside dir, in lexical
// order. Subdirectories are not descended into.
func LoadDir(dir string) ([]*File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts directory %s: %w", dir, err)
	}

	var files []*File
	for _, e := range entries {
		if e.IsDir() || !IsPromptFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", path, err)
		}
		f, enabled, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		if enabled {
			files = append(files, f)
		}
	}
	return files, nil
}

// LoadPaths loads the given files and directories, in argument order.
func LoadPaths(paths []string) ([]*File, error) {
	var files []*File
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			fs, err := LoadDir(p)
			if err != nil {
				return nil, err
			}
			files = append(files, fs...)
			continue
		}
		f, err := Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, ErrNoPrompts
	}
	return files, nil
}

// IsPromptFile reports whether name has the prompt file extension.
func IsPromptFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}

// ParseActions parses a shell-quoted list of id:label pairs, for example
//
//	yes:Yes no:'No thanks' later
//
// An entry without a colon uses its id as the label.
func ParseActions(s string) ([]promptqueue.Action, error) {
	words, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("failed to split actions: %w", err)
	}

	actions := make([]promptqueue.Action, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		id, label, found := strings.Cut(w, ":")
		id = strings.TrimSpace(id)
		if !found || label == "" {
			label = id
		}
		if id == "" {
			return nil, fmt.Errorf("action %q has no id", w)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate action id %q", id)
		}
		seen[id] = true
		actions = append(actions, promptqueue.Action{ID: id, Label: label})
	}
	return actions, nil
}
