package config

// Attribute keys recognized by the parsers.
const (
	AttrFiles     = "files"
	AttrEnv       = "env"
	AttrBefore    = "before"
	AttrAfter     = "after"
	AttrCmdBefore = "cmd_before"
	AttrCmdAfter  = "cmd_after"
)

// ValidAttributes lists the recognized configuration keys, in declaration
// order. Used for error messages when an unknown key is encountered.
var ValidAttributes = []string{
	AttrFiles, AttrEnv, AttrBefore, AttrAfter, AttrCmdBefore, AttrCmdAfter,
}

// Config is the parsed, typed representation of one sandbox declaration.
//
// All fields are optional; the zero value is a valid configuration and yields
// bare isolation (fresh process and working directory, nothing staged).
type Config struct {
	// Files lists paths, relative to the project root, staged into the
	// sandbox working directory before the body runs. Order is preserved;
	// each destination is named after the source's final path component.
	Files []string `json:"files,omitempty"`

	// Env lists environment variables applied sequentially before the body
	// runs. The parser does not deduplicate names: if a name repeats, the
	// later entry wins at application time.
	Env []EnvVar `json:"env,omitempty"`

	// Before and After are optional named hook invocations executed
	// immediately before and after the test body.
	Before *Expr `json:"before,omitempty"`
	After  *Expr `json:"after,omitempty"`

	// CmdBefore and CmdAfter are ordered command lines executed via the
	// shell runner before and after the test body.
	CmdBefore []string `json:"cmd_before,omitempty"`
	CmdAfter  []string `json:"cmd_after,omitempty"`
}

// Empty reports whether the configuration declares nothing.
func (c *Config) Empty() bool {
	return len(c.Files) == 0 && len(c.Env) == 0 &&
		c.Before == nil && c.After == nil &&
		len(c.CmdBefore) == 0 && len(c.CmdAfter) == 0
}

// EnvVar is a single (name, value) environment variable pair.
type EnvVar struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Expr is a reference to a registered named hook with optional string
// arguments, e.g. setup("fixtures"). Hooks are resolved by name when the
// harness prepares execution, never spliced as raw syntax.
type Expr struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// String renders the expression in attribute syntax.
func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	out := e.Name + "("
	for i, a := range e.Args {
		if i > 0 {
			out += ", "
		}
		out += `"` + a + `"`
	}
	return out + ")"
}
