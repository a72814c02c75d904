package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/plan"
)

// Validator produces findings for a plan against a device's current
// configuration snapshot. Implementations never send anything to a
// device; the snapshot is their only view of it.
type Validator interface {
	Validate(p *plan.Plan, snapshot string, dev *inventory.Device) []Finding
}

// riskRule maps a command pattern to a severity and explanation.
type riskRule struct {
	pattern  *regexp.Regexp
	severity plan.Severity
	message  string
	advice   string
}

var riskRules = []riskRule{
	{regexp.MustCompile(`^reload\s*$`), plan.SeverityCritical,
		"device reload will cause downtime", "schedule during a maintenance window and save configuration first"},
	{regexp.MustCompile(`^shutdown\s*$`), plan.SeverityCritical,
		"interface shutdown will disconnect users", "verify the interface is not critical for connectivity"},
	{regexp.MustCompile(`^erase\s+startup-config`), plan.SeverityCritical,
		"erasing startup config is irreversible", "back up the configuration before erasing"},
	{regexp.MustCompile(`^write\s+erase`), plan.SeverityCritical,
		"write erase removes all configuration", "back up the configuration before erasing"},
	{regexp.MustCompile(`^format\s+`), plan.SeverityCritical,
		"formatting storage will destroy data", "back up files before formatting"},
	{regexp.MustCompile(`^delete\s+flash:`), plan.SeverityCritical,
		"deleting files from flash", "verify the file is no longer needed"},

	{regexp.MustCompile(`^no\s+vlan\s+\d+`), plan.SeverityHigh,
		"removing VLAN configuration", "verify the VLAN is not in use before removal"},
	{regexp.MustCompile(`^no\s+ip\s+route`), plan.SeverityHigh,
		"removing IP routes", "verify route removal won't impact reachability"},
	{regexp.MustCompile(`^no\s+spanning-tree`), plan.SeverityHigh,
		"disabling spanning-tree", "verify the topology is loop-free without it"},

	{regexp.MustCompile(`^vtp\s+mode\s+server`), plan.SeverityMedium,
		"changing VTP mode to server", "confirm VTP domain membership before proceeding"},
	{regexp.MustCompile(`^ip\s+routing`), plan.SeverityMedium,
		"enabling IP routing", "confirm the device should route"},
	{regexp.MustCompile(`^no\s+switchport`), plan.SeverityMedium,
		"converting switchport to routed port", "existing L2 configuration on the port is lost"},

	{regexp.MustCompile(`^logging\s+`), plan.SeverityLow,
		"modifying logging configuration", ""},
	{regexp.MustCompile(`^snmp-server\s+`), plan.SeverityLow,
		"modifying SNMP configuration", ""},
}

var (
	credentialPattern = regexp.MustCompile(`\b(password|secret|key)\b`)
	hashedPattern     = regexp.MustCompile(`\$[1589]\$`)
	mgmtIfacePattern  = regexp.MustCompile(`interface.*(management|mgmt|vlan\s*1)\b`)
	interfacePattern  = regexp.MustCompile(`(?i)^interface\s+(\S+)`)
	vlanPattern       = regexp.MustCompile(`(?i)^vlan\s+(\d+)`)
	execOnlyWords     = map[string]bool{
		"show": true, "ping": true, "traceroute": true, "telnet": true,
		"ssh": true, "copy": true, "reload": true, "write": true,
		"erase": true, "delete": true, "format": true, "clear": true,
	}
)

// CommandValidator is the default Validator. It applies the risk rule
// table, intra-plan conflict detection, snapshot duplicate detection,
// and device-model compatibility checks, and assigns each command's risk
// classification on the plan as a side input to execution gating.
type CommandValidator struct{}

// NewCommandValidator creates the default validator.
func NewCommandValidator() *CommandValidator {
	return &CommandValidator{}
}

// Validate runs all checks. The snapshot may be empty (no device
// configuration available); snapshot-dependent checks are then skipped.
func (v *CommandValidator) Validate(p *plan.Plan, snapshot string, dev *inventory.Device) []Finding {
	var findings []Finding

	findings = append(findings, v.checkSyntax(p)...)
	findings = append(findings, v.checkRisk(p)...)
	findings = append(findings, v.checkConflicts(p)...)
	if dev != nil {
		findings = append(findings, v.checkCompatibility(p, dev)...)
	}
	if snapshot != "" {
		findings = append(findings, v.checkSnapshot(p, snapshot)...)
	}
	findings = append(findings, v.checkBulk(p)...)

	return findings
}

func (v *CommandValidator) checkSyntax(p *plan.Plan) []Finding {
	var findings []Finding
	for i, c := range p.Commands {
		if strings.HasSuffix(c.Text, ",") {
			findings = append(findings, Finding{
				Severity: plan.SeverityHigh,
				Check:    "incomplete_command",
				Message:  fmt.Sprintf("command %d looks incomplete: %q", i+1, c.Text),
				Commands: []int{i},
			})
		}
		first := strings.ToLower(strings.Fields(c.Text)[0])
		if execOnlyWords[first] && first != "show" && first != "ping" && first != "traceroute" {
			// Exec verbs in a config push are usually a mistake; show/ping
			// pass through as read-only commands.
			findings = append(findings, Finding{
				Severity: plan.SeverityMedium,
				Check:    "exec_command",
				Message:  fmt.Sprintf("%q is an exec command, not configuration", first),
				Commands: []int{i},
			})
		}
	}
	return findings
}

func (v *CommandValidator) checkRisk(p *plan.Plan) []Finding {
	var findings []Finding
	for i, c := range p.Commands {
		lower := strings.ToLower(c.Text)
		for _, rule := range riskRules {
			if rule.pattern.MatchString(lower) {
				// Record the classification on the plan; a sealed plan
				// means validation ran out of order and the risk stands
				// as already assigned.
				_ = p.SetRisk(i, rule.severity)
				findings = append(findings, Finding{
					Severity:       rule.severity,
					Check:          "risky_command",
					Message:        fmt.Sprintf("%s: %q", rule.message, c.Text),
					Commands:       []int{i},
					Recommendation: rule.advice,
				})
			}
		}

		if credentialPattern.MatchString(lower) && !hashedPattern.MatchString(lower) {
			_ = p.SetRisk(i, plan.SeverityHigh)
			findings = append(findings, Finding{
				Severity:       plan.SeverityHigh,
				Check:          "plaintext_credential",
				Message:        fmt.Sprintf("plaintext credential in %q", c.Text),
				Commands:       []int{i},
				Recommendation: "use encrypted passwords or service password-encryption",
			})
		}

		if mgmtIfacePattern.MatchString(lower) {
			_ = p.SetRisk(i, plan.SeverityHigh)
			findings = append(findings, Finding{
				Severity:       plan.SeverityHigh,
				Check:          "management_interface",
				Message:        fmt.Sprintf("modifying management interface: %q", c.Text),
				Commands:       []int{i},
				Recommendation: "ensure management connectivity is maintained",
			})
		}
	}
	return findings
}

func (v *CommandValidator) checkConflicts(p *plan.Plan) []Finding {
	var findings []Finding
	interfaces := make(map[string]int)
	vlans := make(map[string]int)

	for i, c := range p.Commands {
		if m := interfacePattern.FindStringSubmatch(c.Text); m != nil {
			name := strings.ToLower(m[1])
			if prev, ok := interfaces[name]; ok {
				findings = append(findings, Finding{
					Severity: plan.SeverityMedium,
					Check:    "duplicate_stanza",
					Message:  fmt.Sprintf("interface %s configured twice in plan", m[1]),
					Commands: []int{prev, i},
				})
			} else {
				interfaces[name] = i
			}
		}
		if m := vlanPattern.FindStringSubmatch(c.Text); m != nil {
			if prev, ok := vlans[m[1]]; ok {
				findings = append(findings, Finding{
					Severity: plan.SeverityMedium,
					Check:    "duplicate_stanza",
					Message:  fmt.Sprintf("VLAN %s configured twice in plan", m[1]),
					Commands: []int{prev, i},
				})
			} else {
				vlans[m[1]] = i
			}
		}
	}

	// Conflicting switchport modes within one interface stanza
	modesByIface := make(map[string][]int)
	current := ""
	for i, c := range p.Commands {
		if m := interfacePattern.FindStringSubmatch(c.Text); m != nil {
			current = strings.ToLower(m[1])
			continue
		}
		if current != "" && strings.Contains(strings.ToLower(c.Text), "switchport mode") {
			modesByIface[current] = append(modesByIface[current], i)
		}
	}
	for iface, idxs := range modesByIface {
		if len(idxs) > 1 {
			findings = append(findings, Finding{
				Severity: plan.SeverityHigh,
				Check:    "conflicting_modes",
				Message:  fmt.Sprintf("multiple switchport modes for %s", iface),
				Commands: idxs,
			})
		}
	}

	return findings
}

func (v *CommandValidator) checkCompatibility(p *plan.Plan, dev *inventory.Device) []Finding {
	if dev.Model == "" {
		return nil
	}
	model := strings.ToLower(dev.Model)
	basic2960 := strings.HasPrefix(model, "c2960") && !strings.HasSuffix(model, "x") && !strings.HasSuffix(model, "xr")

	var findings []Finding
	for i, c := range p.Commands {
		lower := strings.ToLower(c.Text)
		if basic2960 && strings.Contains(lower, "stack") {
			findings = append(findings, Finding{
				Severity:       plan.SeverityMedium,
				Check:          "unsupported_feature",
				Message:        fmt.Sprintf("stack commands may not be supported on %s", dev.Model),
				Commands:       []int{i},
				Recommendation: "verify feature support for this model",
			})
		}
		if basic2960 && (strings.Contains(lower, "class-map") ||
			strings.Contains(lower, "policy-map") || strings.Contains(lower, "service-policy")) {
			findings = append(findings, Finding{
				Severity: plan.SeverityLow,
				Check:    "feature_limitation",
				Message:  fmt.Sprintf("advanced QoS may be limited on %s", dev.Model),
				Commands: []int{i},
			})
		}
	}
	return findings
}

func (v *CommandValidator) checkSnapshot(p *plan.Plan, snapshot string) []Finding {
	existing := make(map[string]bool)
	for _, line := range strings.Split(snapshot, "\n") {
		line = strings.TrimSpace(strings.ToLower(line))
		if line != "" && !strings.HasPrefix(line, "!") {
			existing[line] = true
		}
	}

	var findings []Finding
	for i, c := range p.Commands {
		if existing[strings.ToLower(c.Text)] {
			findings = append(findings, Finding{
				Severity: plan.SeverityLow,
				Check:    "duplicate_config",
				Message:  fmt.Sprintf("%q already present in running config", c.Text),
				Commands: []int{i},
			})
		}
	}
	return findings
}

func (v *CommandValidator) checkBulk(p *plan.Plan) []Finding {
	interfaceCount := 0
	vlanCount := 0
	for _, c := range p.Commands {
		if interfacePattern.MatchString(c.Text) {
			interfaceCount++
		}
		if vlanPattern.MatchString(c.Text) {
			vlanCount++
		}
	}

	var findings []Finding
	if interfaceCount > 20 {
		findings = append(findings, Finding{
			Severity: plan.SeverityMedium,
			Check:    "bulk_interface_config",
			Message:  fmt.Sprintf("configuring %d interfaces", interfaceCount),
		})
	}
	if vlanCount > 10 {
		findings = append(findings, Finding{
			Severity: plan.SeverityMedium,
			Check:    "bulk_vlan_config",
			Message:  fmt.Sprintf("creating or modifying %d VLANs", vlanCount),
		})
	}
	return findings
}
