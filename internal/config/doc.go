// Package config defines the declarative sandbox configuration and its parsers.
//
// A configuration declares what a sealed sandbox needs before and after the
// test body runs: files to stage, environment variables to set, named hooks
// to invoke, and shell command blocks to execute.
//
// # Attribute Syntax
//
// The primary surface is a comma-separated attribute list:
//
//	files = ["testdata/repo", "testdata/config.toml"],
//	env = [("VAR", "value"), ("OTHER", "x")],
//	before = setup("fixtures"),
//	after = teardown(),
//	cmd_before = {
//	    git init;
//	    git commit -m c1 --allow-empty;
//	},
//	cmd_after = { rm -f lockfile }
//
// Recognized keys are exactly files, env, before, after, cmd_before and
// cmd_after. Every key is optional and may appear at most once; unknown or
// repeated keys are configuration errors, never silently merged. Entries may
// or may not carry a trailing comma.
//
// Command blocks are opaque: the parser only locates the balanced braces and
// splits the contents into command lines (on ';' and newlines). Interpretation
// is left to the command runner that eventually executes them.
//
// # YAML Frontend
//
// Load reads the same configuration from a YAML file with strict field
// checking, mirroring the attribute keys one to one:
//
//	files: ["testdata/repo"]
//	env:
//	  - name: VAR
//	    value: value
//	before: setup("fixtures")
//	cmd_before: |
//	  git init
//	  git commit -m c1 --allow-empty
//
// All configuration errors are detected before any process or directory is
// allocated.
package config
