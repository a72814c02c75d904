package validate

import (
	"strings"
	"testing"

	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/plan"
)

func mustPlan(t *testing.T, lines ...string) *plan.Plan {
	t.Helper()
	p, err := plan.New(lines, plan.KindLiteral, plan.Options{AcceptNonReversible: true})
	if err != nil {
		t.Fatalf("plan.New: %v", err)
	}
	return p
}

func findCheck(findings []Finding, check string) *Finding {
	for i := range findings {
		if findings[i].Check == check {
			return &findings[i]
		}
	}
	return nil
}

func TestValidate_RiskyCommands(t *testing.T) {
	tests := []struct {
		command  string
		severity plan.Severity
	}{
		{"reload", plan.SeverityCritical},
		{"shutdown", plan.SeverityCritical},
		{"erase startup-config", plan.SeverityCritical},
		{"write erase", plan.SeverityCritical},
		{"no vlan 100", plan.SeverityHigh},
		{"no ip route 10.0.0.0 255.0.0.0", plan.SeverityHigh},
		{"no spanning-tree vlan 10", plan.SeverityHigh},
		{"vtp mode server", plan.SeverityMedium},
		{"no switchport", plan.SeverityMedium},
		{"logging host 10.1.1.1", plan.SeverityLow},
	}

	v := NewCommandValidator()
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			p := mustPlan(t, tt.command)
			findings := v.Validate(p, "", nil)

			f := findCheck(findings, "risky_command")
			if f == nil {
				t.Fatalf("no risky_command finding for %q: %v", tt.command, findings)
			}
			if f.Severity != tt.severity {
				t.Errorf("severity = %v, want %v", f.Severity, tt.severity)
			}
			// Risk is recorded on the plan before execution begins
			if p.Commands[0].Risk != tt.severity {
				t.Errorf("command risk = %v, want %v", p.Commands[0].Risk, tt.severity)
			}
		})
	}
}

func TestValidate_CleanPlan(t *testing.T) {
	v := NewCommandValidator()
	p := mustPlan(t, "vlan 100", "interface Vlan100", "no shutdown")
	findings := v.Validate(p, "", nil)

	if MaxSeverity(findings) > plan.SeverityLow {
		t.Errorf("clean plan produced: %v", findings)
	}
	if HasBlocking(findings) {
		t.Error("clean plan should not block")
	}
}

func TestValidate_PlaintextCredential(t *testing.T) {
	v := NewCommandValidator()

	p := mustPlan(t, "enable password letmein")
	if findCheck(v.Validate(p, "", nil), "plaintext_credential") == nil {
		t.Error("expected plaintext_credential finding")
	}

	// Hashed secrets do not trigger the check
	p = mustPlan(t, "enable secret $1$abcd$xyz")
	if findCheck(v.Validate(p, "", nil), "plaintext_credential") != nil {
		t.Error("hashed secret should not trigger the check")
	}
}

func TestValidate_ManagementInterface(t *testing.T) {
	v := NewCommandValidator()
	p := mustPlan(t, "interface vlan 1")
	f := findCheck(v.Validate(p, "", nil), "management_interface")
	if f == nil {
		t.Fatal("expected management_interface finding")
	}
	if f.Severity != plan.SeverityHigh {
		t.Errorf("severity = %v", f.Severity)
	}
}

func TestValidate_DuplicateStanzas(t *testing.T) {
	v := NewCommandValidator()
	p := mustPlan(t, "interface Gi0/1", "no shutdown", "interface Gi0/1", "shutdown")
	f := findCheck(v.Validate(p, "", nil), "duplicate_stanza")
	if f == nil {
		t.Fatal("expected duplicate_stanza finding")
	}
	if len(f.Commands) != 2 || f.Commands[0] != 0 || f.Commands[1] != 2 {
		t.Errorf("Commands = %v", f.Commands)
	}

	p = mustPlan(t, "vlan 100", "name data", "vlan 100")
	if findCheck(v.Validate(p, "", nil), "duplicate_stanza") == nil {
		t.Error("expected duplicate VLAN finding")
	}
}

func TestValidate_ConflictingSwitchportModes(t *testing.T) {
	v := NewCommandValidator()
	p := mustPlan(t, "interface Gi0/1", "switchport mode access", "switchport mode trunk")
	f := findCheck(v.Validate(p, "", nil), "conflicting_modes")
	if f == nil {
		t.Fatal("expected conflicting_modes finding")
	}
	if f.Severity != plan.SeverityHigh {
		t.Errorf("severity = %v", f.Severity)
	}
}

func TestValidate_SnapshotDuplicates(t *testing.T) {
	v := NewCommandValidator()
	snapshot := strings.Join([]string{
		"!",
		"vlan 100",
		" name data",
		"interface GigabitEthernet0/1",
	}, "\n")

	p := mustPlan(t, "vlan 100", "vlan 200")
	findings := v.Validate(p, snapshot, nil)
	f := findCheck(findings, "duplicate_config")
	if f == nil {
		t.Fatal("expected duplicate_config finding")
	}
	if len(f.Commands) != 1 || f.Commands[0] != 0 {
		t.Errorf("Commands = %v", f.Commands)
	}
}

func TestValidate_ModelCompatibility(t *testing.T) {
	v := NewCommandValidator()
	dev := &inventory.Device{Name: "sw1", Address: "10.0.0.1", Model: "c2960"}

	p := mustPlan(t, "switch stack-member 2 priority 10")
	if findCheck(v.Validate(p, "", dev), "unsupported_feature") == nil {
		t.Error("expected unsupported_feature on basic 2960")
	}

	p = mustPlan(t, "policy-map shape-all")
	if findCheck(v.Validate(p, "", dev), "feature_limitation") == nil {
		t.Error("expected feature_limitation on basic 2960")
	}

	// The X variant supports stacking
	devX := &inventory.Device{Name: "sw2", Address: "10.0.0.2", Model: "c2960x"}
	p = mustPlan(t, "switch stack-member 2 priority 10")
	if findCheck(v.Validate(p, "", devX), "unsupported_feature") != nil {
		t.Error("2960X should not warn about stacking")
	}
}

func TestValidate_ExecCommand(t *testing.T) {
	v := NewCommandValidator()
	p := mustPlan(t, "copy running-config startup-config")
	if findCheck(v.Validate(p, "", nil), "exec_command") == nil {
		t.Error("expected exec_command finding")
	}

	// show commands pass through without the warning
	p = mustPlan(t, "show vlan brief")
	if findCheck(v.Validate(p, "", nil), "exec_command") != nil {
		t.Error("show should not trigger exec_command")
	}
}

func TestMaxSeverity(t *testing.T) {
	if MaxSeverity(nil) != plan.SeverityLow {
		t.Error("empty findings should be low")
	}
	findings := []Finding{
		{Severity: plan.SeverityMedium},
		{Severity: plan.SeverityCritical},
		{Severity: plan.SeverityLow},
	}
	if MaxSeverity(findings) != plan.SeverityCritical {
		t.Error("MaxSeverity should pick critical")
	}
	if !HasBlocking(findings) {
		t.Error("critical should block")
	}
}

func TestCountBySeverity(t *testing.T) {
	findings := []Finding{
		{Severity: plan.SeverityLow},
		{Severity: plan.SeverityLow},
		{Severity: plan.SeverityHigh},
	}
	counts := CountBySeverity(findings)
	if counts[plan.SeverityLow] != 2 || counts[plan.SeverityHigh] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
