package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/config-genie/genie/pkg/util"
)

// builtins are templates shipped with the tool. User templates with the
// same name shadow them.
var builtins = []*Template{
	{
		Name:        "vlan-create",
		Description: "Create a VLAN and name it",
		Commands: []string{
			"vlan ${vlan_id}",
			"name ${vlan_name}",
		},
		Tags: []string{"vlan", "layer2"},
	},
	{
		Name:        "interface-access",
		Description: "Configure an access port on a VLAN",
		Commands: []string{
			"interface ${interface}",
			"switchport mode access",
			"switchport access vlan ${vlan_id}",
			"no shutdown",
		},
		Tags: []string{"interface", "layer2"},
	},
	{
		Name:        "interface-trunk",
		Description: "Configure a trunk port",
		Commands: []string{
			"interface ${interface}",
			"switchport mode trunk",
			"switchport trunk allowed vlan ${allowed_vlans}",
			"no shutdown",
		},
		Tags: []string{"interface", "layer2"},
	},
	{
		Name:        "interface-shutdown",
		Description: "Administratively disable an interface",
		Commands: []string{
			"interface ${interface}",
			"shutdown",
		},
		Tags: []string{"interface"},
	},
	{
		Name:        "static-route",
		Description: "Add a static IPv4 route",
		Commands: []string{
			"ip route ${network} ${mask} ${next_hop}",
		},
		Tags: []string{"routing", "layer3"},
	},
}

// Store loads and persists templates. Builtins are always available;
// user templates live as JSON or YAML files in a directory and shadow
// builtins by name.
type Store struct {
	dir       string
	templates map[string]*Template
}

// NewStore builds a store over the given user template directory. The
// directory may be empty or missing; builtins still load.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:       dir,
		templates: make(map[string]*Template),
	}
	for _, t := range builtins {
		s.templates[t.Name] = t
	}
	if dir != "" {
		if err := s.loadDir(dir); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading template dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		t, err := loadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			util.Warnf("Skipping template file %s: %v", e.Name(), err)
			continue
		}
		s.templates[t.Name] = t
	}
	return nil
}

// LoadTemplateFile parses a single template file (JSON or YAML) and
// lints it.
func LoadTemplateFile(path string) (*Template, error) {
	return loadFile(path)
}

func loadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Template
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &t)
	default:
		err = yaml.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := t.Lint(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &t, nil
}

// Get returns the named template.
func (s *Store) Get(name string) (*Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", name, util.ErrNotFound)
	}
	return t, nil
}

// List returns all templates sorted by name, optionally filtered by tag.
func (s *Store) List(tag string) []*Template {
	out := make([]*Template, 0, len(s.templates))
	for _, t := range s.templates {
		if tag != "" && !t.HasTag(tag) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Search returns templates whose name or description contains the query,
// case-insensitively.
func (s *Store) Search(query string) []*Template {
	q := strings.ToLower(query)
	var out []*Template
	for _, t := range s.templates {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save writes a user template to the store directory as YAML and makes
// it available immediately.
func (s *Store) Save(t *Template) error {
	if err := t.Lint(); err != nil {
		return fmt.Errorf("template %s: %w", t.Name, err)
	}
	if s.dir == "" {
		return fmt.Errorf("no template directory configured")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating template dir: %w", err)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, util.SanitizeName(t.Name)+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing template %s: %w", t.Name, err)
	}
	s.templates[t.Name] = t
	return nil
}

// Delete removes a user template file. Builtins cannot be deleted.
func (s *Store) Delete(name string) error {
	if _, ok := s.templates[name]; !ok {
		return fmt.Errorf("template %s: %w", name, util.ErrNotFound)
	}
	for _, b := range builtins {
		if b.Name == name {
			if s.templates[name] == b {
				return fmt.Errorf("template %s is builtin and cannot be deleted", name)
			}
			break
		}
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(s.dir, util.SanitizeName(name)+ext)
		if err := os.Remove(path); err == nil {
			delete(s.templates, name)
			// A builtin shadowed by this file becomes visible again.
			for _, b := range builtins {
				if b.Name == name {
					s.templates[name] = b
				}
			}
			return nil
		}
	}
	return fmt.Errorf("template %s: no user template file found", name)
}
