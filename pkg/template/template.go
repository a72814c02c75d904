// Package template resolves a template name plus variable bindings into
// an ordered command list. It performs variable substitution only; plan
// building and validation happen elsewhere.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/config-genie/genie/pkg/util"
)

var variablePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Template is a named, reusable command sequence with ${var} placeholders.
type Template struct {
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Commands    []string          `json:"commands" yaml:"commands"`
	// Variables holds default values for placeholders.
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Tags      []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Render substitutes variables into the command list. Caller-supplied
// bindings override template defaults. Unresolved placeholders are an
// error so a half-substituted command can never reach a device.
func (t *Template) Render(vars map[string]string) ([]string, error) {
	merged := make(map[string]string, len(t.Variables)+len(vars))
	for k, v := range t.Variables {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}

	rendered := make([]string, len(t.Commands))
	for i, cmd := range t.Commands {
		out := cmd
		for name, value := range merged {
			out = strings.ReplaceAll(out, "${"+name+"}", value)
		}
		if m := variablePattern.FindStringSubmatch(out); m != nil {
			return nil, fmt.Errorf("template %s: unresolved variable ${%s} in %q", t.Name, m[1], cmd)
		}
		rendered[i] = out
	}
	return rendered, nil
}

// Placeholders returns the sorted set of variable names used in the
// template's commands.
func (t *Template) Placeholders() []string {
	seen := make(map[string]bool)
	for _, cmd := range t.Commands {
		for _, m := range variablePattern.FindAllStringSubmatch(cmd, -1) {
			seen[m[1]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lint checks the template for structural problems and returns a
// *util.ValidationError listing every issue, or nil. Placeholders
// without defaults are fine; bindings are supplied at render time.
func (t *Template) Lint() error {
	var b util.ValidationBuilder
	b.Add(t.Name != "", "template name is required")
	b.Add(len(t.Commands) > 0, "template must contain at least one command")
	for i, cmd := range t.Commands {
		if strings.TrimSpace(cmd) == "" {
			b.AddErrorf("line %d: empty command", i+1)
		}
	}
	for name := range t.Variables {
		used := false
		for _, cmd := range t.Commands {
			if strings.Contains(cmd, "${"+name+"}") {
				used = true
				break
			}
		}
		if !used {
			b.AddErrorf("variable %s is declared but never used", name)
		}
	}
	return b.Build()
}

// HasTag reports whether the template carries the given tag.
func (t *Template) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}
