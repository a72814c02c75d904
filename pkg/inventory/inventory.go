package inventory

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/config-genie/genie/pkg/util"
)

// Inventory holds the known devices for a network, keyed by name.
// Device names are unique; loading a duplicate name is an error.
type Inventory struct {
	devices map[string]*Device
	order   []string
}

// New creates an empty inventory.
func New() *Inventory {
	return &Inventory{devices: make(map[string]*Device)}
}

// inventoryFile mirrors the on-disk YAML layout.
type inventoryFile struct {
	Devices []*Device `yaml:"devices"`
}

// LoadYAML reads devices from a YAML inventory file.
func LoadYAML(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	var file inventoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing inventory %s: %w", path, err)
	}
	if file.Devices == nil {
		return nil, fmt.Errorf("inventory %s: missing 'devices' key", path)
	}

	inv := New()
	for _, d := range file.Devices {
		dev, err := NewDevice(d.Name, d.Address)
		if err != nil {
			return nil, fmt.Errorf("inventory %s: %w", path, err)
		}
		dev.Model = d.Model
		dev.Site = d.Site
		dev.Role = d.Role
		dev.Capabilities = d.Capabilities
		if err := inv.Add(dev); err != nil {
			return nil, fmt.Errorf("inventory %s: %w", path, err)
		}
	}
	return inv, nil
}

// LoadTXT reads devices from a plain text file, one device per line:
// either a bare address, or "address,name[,model[,site[,role]]]".
// Blank lines and lines starting with # are skipped.
func LoadTXT(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}

	inv := New()
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}

		address := parts[0]
		name := address
		if len(parts) > 1 && parts[1] != "" {
			name = parts[1]
		}

		dev, err := NewDevice(name, address)
		if err != nil {
			return nil, fmt.Errorf("inventory %s line %d: %w", path, i+1, err)
		}
		if len(parts) > 2 {
			dev.Model = parts[2]
		}
		if len(parts) > 3 {
			dev.Site = parts[3]
		}
		if len(parts) > 4 {
			dev.Role = parts[4]
		}

		if err := inv.Add(dev); err != nil {
			return nil, fmt.Errorf("inventory %s line %d: %w", path, i+1, err)
		}
	}
	return inv, nil
}

// Load reads an inventory file, dispatching on extension (.yaml/.yml vs text).
func Load(path string) (*Inventory, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return LoadYAML(path)
	}
	return LoadTXT(path)
}

// Add adds a device. Duplicate names are rejected.
func (inv *Inventory) Add(dev *Device) error {
	if _, ok := inv.devices[dev.Name]; ok {
		return fmt.Errorf("device %s: %w", dev.Name, util.ErrAlreadyExists)
	}
	inv.devices[dev.Name] = dev
	inv.order = append(inv.order, dev.Name)
	return nil
}

// Remove deletes a device by name.
func (inv *Inventory) Remove(name string) error {
	if _, ok := inv.devices[name]; !ok {
		return fmt.Errorf("device %s not found", name)
	}
	delete(inv.devices, name)
	for i, n := range inv.order {
		if n == name {
			inv.order = append(inv.order[:i], inv.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a device by name, or nil if not present.
func (inv *Inventory) Get(name string) *Device {
	return inv.devices[name]
}

// All returns all devices in load order.
func (inv *Inventory) All() []*Device {
	devices := make([]*Device, 0, len(inv.order))
	for _, name := range inv.order {
		devices = append(devices, inv.devices[name])
	}
	return devices
}

// Len returns the number of devices.
func (inv *Inventory) Len() int {
	return len(inv.devices)
}

// FilterOptions selects devices by attribute. Empty fields match everything.
type FilterOptions struct {
	Model       string
	Site        string
	Role        string
	NamePattern string // case-insensitive regexp matched against the name
}

// Filter returns devices matching all set criteria, in load order.
func (inv *Inventory) Filter(opts FilterOptions) ([]*Device, error) {
	var namePat *regexp.Regexp
	if opts.NamePattern != "" {
		var err error
		namePat, err = regexp.Compile("(?i)" + opts.NamePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid name pattern: %w", err)
		}
	}

	var matched []*Device
	for _, dev := range inv.All() {
		if opts.Model != "" && dev.Model != opts.Model {
			continue
		}
		if opts.Site != "" && dev.Site != opts.Site {
			continue
		}
		if opts.Role != "" && dev.Role != opts.Role {
			continue
		}
		if namePat != nil && !namePat.MatchString(dev.Name) {
			continue
		}
		matched = append(matched, dev)
	}
	return matched, nil
}

// Resolve maps a comma-separated name list to devices, in the given order.
func (inv *Inventory) Resolve(names []string) ([]*Device, error) {
	var devices []*Device
	for _, name := range names {
		dev := inv.Get(name)
		if dev == nil {
			return nil, fmt.Errorf("device %s not in inventory", name)
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// Values returns the sorted unique values of an attribute
// ("model", "site" or "role") across all devices.
func (inv *Inventory) Values(attr string) []string {
	seen := make(map[string]bool)
	for _, dev := range inv.devices {
		var v string
		switch attr {
		case "model":
			v = dev.Model
		case "site":
			v = dev.Site
		case "role":
			v = dev.Role
		}
		if v != "" {
			seen[v] = true
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
