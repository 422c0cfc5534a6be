// Package config provides the embedded default configuration and example
// prompt files for promptq.
package config

import (
	"embed"
)

// DefaultConfigYAML contains the embedded default configuration in YAML format.
// "promptq init" writes it to the configuration path on first run.
//
//go:embed config.default.yaml
var DefaultConfigYAML []byte

// ExamplePromptsFS contains the embedded example prompt files.
//
//go:embed prompts/examples/*.md
var ExamplePromptsFS embed.FS

// ExamplePromptsDir is the path within the embedded filesystem where the
// examples are stored.
const ExamplePromptsDir = "prompts/examples"
