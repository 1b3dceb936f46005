package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the attribute keys for the YAML frontend.
// Hook expressions are plain strings parsed with ParseExpr; command blocks
// are block scalars split into lines with SplitCommands.
type fileConfig struct {
	Files     []string `yaml:"files"`
	Env       []EnvVar `yaml:"env"`
	Before    string   `yaml:"before"`
	After     string   `yaml:"after"`
	CmdBefore string   `yaml:"cmd_before"`
	CmdAfter  string   `yaml:"cmd_after"`
}

// Load reads a configuration from a file.
//
// Files with a .yaml or .yml extension are decoded as YAML with strict field
// checking; anything else is parsed as attribute syntax.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(string(data))
	}
}

// ParseYAML decodes a YAML configuration document.
//
// Unknown fields are rejected (catching typos like "file:" for "files:"),
// and YAML itself rejects repeated keys, so the attribute invariants hold
// for this frontend too. An empty document is a valid, empty configuration.
func ParseYAML(data []byte) (*Config, error) {
	var fc fileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty document: valid, empty configuration.
			return &Config{}, nil
		}
		return nil, classifyYAMLError(err)
	}

	cfg := &Config{
		Files:     fc.Files,
		Env:       fc.Env,
		CmdBefore: SplitCommands(fc.CmdBefore),
		CmdAfter:  SplitCommands(fc.CmdAfter),
	}

	var err error
	if fc.Before != "" {
		if cfg.Before, err = ParseExpr(fc.Before); err != nil {
			return nil, fmt.Errorf("invalid before expression: %w", err)
		}
	}
	if fc.After != "" {
		if cfg.After, err = ParseExpr(fc.After); err != nil {
			return nil, fmt.Errorf("invalid after expression: %w", err)
		}
	}
	return cfg, nil
}

// classifyYAMLError maps yaml decode errors onto the configuration error
// taxonomy so callers can branch on the code regardless of frontend.
func classifyYAMLError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "not found in type"):
		return &Error{
			Code:    ErrCodeUnknownAttribute,
			Message: fmt.Sprintf("unknown attribute, valid attributes are %s: %v", strings.Join(ValidAttributes, ", "), err),
		}
	case strings.Contains(msg, "already defined"):
		return &Error{
			Code:    ErrCodeDuplicateAttribute,
			Message: fmt.Sprintf("attribute declared more than once: %v", err),
		}
	default:
		return &Error{
			Code:    ErrCodeSyntax,
			Message: fmt.Sprintf("malformed YAML configuration: %v", err),
		}
	}
}
