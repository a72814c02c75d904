package template

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/config-genie/genie/pkg/util"
)

func TestRender(t *testing.T) {
	tmpl := &Template{
		Name:     "access",
		Commands: []string{"interface ${interface}", "switchport access vlan ${vlan_id}"},
		Variables: map[string]string{
			"vlan_id": "100",
		},
	}

	out, err := tmpl.Render(map[string]string{"interface": "GigabitEthernet0/1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []string{"interface GigabitEthernet0/1", "switchport access vlan 100"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("Render = %v, want %v", out, want)
	}
}

func TestRenderOverridesDefault(t *testing.T) {
	tmpl := &Template{
		Name:      "vlan",
		Commands:  []string{"vlan ${vlan_id}"},
		Variables: map[string]string{"vlan_id": "100"},
	}
	out, err := tmpl.Render(map[string]string{"vlan_id": "200"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out[0] != "vlan 200" {
		t.Errorf("Render = %q, want caller binding to win", out[0])
	}
}

func TestRenderUnresolved(t *testing.T) {
	tmpl := &Template{
		Name:     "vlan",
		Commands: []string{"vlan ${vlan_id}", "name ${vlan_name}"},
	}
	_, err := tmpl.Render(map[string]string{"vlan_id": "100"})
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "vlan_name") {
		t.Errorf("error should name the missing variable, got %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	tmpl := &Template{
		Commands: []string{
			"interface ${interface}",
			"switchport access vlan ${vlan_id}",
			"description ${interface} access",
		},
	}
	got := tmpl.Placeholders()
	want := []string{"interface", "vlan_id"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders = %v, want %v", got, want)
	}
}

func TestLint(t *testing.T) {
	tmpl := &Template{
		Name:      "",
		Commands:  []string{"vlan 100", "  "},
		Variables: map[string]string{"unused": "x"},
	}
	err := tmpl.Lint()
	if err == nil {
		t.Fatal("expected lint issues")
	}
	var verr *util.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Lint = %T, want *util.ValidationError", err)
	}
	if len(verr.Errors) != 3 {
		t.Fatalf("Lint = %v, want 3 issues", verr.Errors)
	}
	if !errors.Is(err, util.ErrValidationFailed) {
		t.Error("lint errors should match util.ErrValidationFailed")
	}

	clean := &Template{Name: "vlan", Commands: []string{"vlan 100"}}
	if err := clean.Lint(); err != nil {
		t.Errorf("clean template: %v", err)
	}
}

func TestStoreBuiltins(t *testing.T) {
	s, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	tmpl, err := s.Get("vlan-create")
	if err != nil {
		t.Fatalf("Get builtin: %v", err)
	}
	if len(tmpl.Commands) == 0 {
		t.Error("builtin template has no commands")
	}
	if got := s.List("layer2"); len(got) == 0 {
		t.Error("List by tag returned nothing")
	}
}

func TestStoreUserTemplates(t *testing.T) {
	dir := t.TempDir()

	yamlTmpl := `name: ntp-setup
description: Point the device at an NTP server
commands:
  - ntp server ${ntp_server}
tags: [management]
`
	if err := os.WriteFile(filepath.Join(dir, "ntp-setup.yaml"), []byte(yamlTmpl), 0644); err != nil {
		t.Fatal(err)
	}
	jsonTmpl := `{"name":"banner","commands":["banner motd ${text}"]}`
	if err := os.WriteFile(filepath.Join(dir, "banner.json"), []byte(jsonTmpl), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := s.Get("ntp-setup"); err != nil {
		t.Errorf("Get yaml template: %v", err)
	}
	if _, err := s.Get("banner"); err != nil {
		t.Errorf("Get json template: %v", err)
	}

	found := s.Search("ntp")
	if len(found) != 1 || found[0].Name != "ntp-setup" {
		t.Errorf("Search = %v", found)
	}
}

func TestStoreSaveDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	tmpl := &Template{
		Name:     "dns-setup",
		Commands: []string{"ip name-server ${dns_server}"},
	}
	if err := s.Save(tmpl); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dns-setup.yaml")); err != nil {
		t.Errorf("saved template file missing: %v", err)
	}
	if _, err := s.Get("dns-setup"); err != nil {
		t.Errorf("Get after Save: %v", err)
	}

	if err := s.Delete("dns-setup"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("dns-setup"); err == nil {
		t.Error("Get after Delete should fail")
	}

	if err := s.Delete("vlan-create"); err == nil {
		t.Error("deleting a builtin should fail")
	}
}

func TestStoreUserShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	shadow := `name: vlan-create
commands:
  - vlan ${vlan_id}
`
	if err := os.WriteFile(filepath.Join(dir, "vlan-create.yaml"), []byte(shadow), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	tmpl, err := s.Get("vlan-create")
	if err != nil {
		t.Fatal(err)
	}
	if len(tmpl.Commands) != 1 {
		t.Errorf("user template should shadow builtin, got %v", tmpl.Commands)
	}

	// Deleting the shadow restores the builtin.
	if err := s.Delete("vlan-create"); err != nil {
		t.Fatalf("Delete shadow: %v", err)
	}
	tmpl, err = s.Get("vlan-create")
	if err != nil {
		t.Fatalf("builtin should reappear: %v", err)
	}
	if len(tmpl.Commands) != 2 {
		t.Errorf("expected builtin back, got %v", tmpl.Commands)
	}
}
