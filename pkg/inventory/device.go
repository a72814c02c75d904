// Package inventory resolves device names to connection endpoints and
// attributes. It supplies filtering and grouping but no execution logic.
package inventory

import (
	"fmt"
	"regexp"
)

// addressPattern accepts IPv4 addresses and plain hostnames.
var addressPattern = regexp.MustCompile(
	`^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$|^[A-Za-z0-9][A-Za-z0-9.-]*$`)

// Device is a managed endpoint. Devices are read-only references resolved
// once at run start; the execution engine never mutates them.
type Device struct {
	Name         string   `yaml:"name" json:"name"`
	Address      string   `yaml:"address" json:"address"`
	Model        string   `yaml:"model,omitempty" json:"model,omitempty"`
	Site         string   `yaml:"site,omitempty" json:"site,omitempty"`
	Role         string   `yaml:"role,omitempty" json:"role,omitempty"`
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// NewDevice creates a device after validating its address format.
func NewDevice(name, address string) (*Device, error) {
	if name == "" {
		return nil, fmt.Errorf("device name required")
	}
	if !addressPattern.MatchString(address) {
		return nil, fmt.Errorf("invalid address or hostname: %q", address)
	}
	return &Device{Name: name, Address: address}, nil
}

// HasCapability reports whether the device declares the named capability flag.
// The engine consults flags as opaque booleans only.
func (d *Device) HasCapability(flag string) bool {
	for _, c := range d.Capabilities {
		if c == flag {
			return true
		}
	}
	return false
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Address)
}
