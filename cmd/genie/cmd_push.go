package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/config-genie/genie/pkg/cli"
	"github.com/config-genie/genie/pkg/connector"
	"github.com/config-genie/genie/pkg/engine"
	"github.com/config-genie/genie/pkg/history"
	"github.com/config-genie/genie/pkg/inventory"
	"github.com/config-genie/genie/pkg/plan"
	"github.com/config-genie/genie/pkg/template"
	"github.com/config-genie/genie/pkg/util"
)

var (
	pushCommands    []string
	pushFile        string
	pushTemplate    string
	pushVars        []string
	pushVerify      string
	pushExecute     bool
	pushNoRollback  bool
	pushWorkers     int
	pushAutoApprove string
	pushSite        string
	pushRole        string
	pushModel       string
)

var pushCmd = &cobra.Command{
	Use:   "push [device...]",
	Short: "Push a command plan to devices",
	Long: `Push a command plan to one or more devices.

Devices are named as arguments or selected from the inventory with
--site/--role/--model filters. Commands come from -c flags, a file, or
a template. Without -x the plan is validated and previewed only.

Examples:
  genie push sw1 -c "vlan 100" -c "name users"
  genie push --role access -t interface-access --var interface=Gi0/1 --var vlan_id=100 -x
  genie push sw1 sw2 -f change.txt --verify "show vlan brief" -x`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringArrayVarP(&pushCommands, "command", "c", nil, "Command to push (repeatable, in order)")
	pushCmd.Flags().StringVarP(&pushFile, "file", "f", "", "File of commands, one per line")
	pushCmd.Flags().StringVarP(&pushTemplate, "template", "t", "", "Template name")
	pushCmd.Flags().StringArrayVar(&pushVars, "var", nil, "Template variable key=value (repeatable)")
	pushCmd.Flags().StringVar(&pushVerify, "verify", "", "Command to run after apply; output is attached to the result")
	pushCmd.Flags().BoolVarP(&pushExecute, "execute", "x", false, "Execute the plan (default is dry-run)")
	pushCmd.Flags().BoolVar(&pushNoRollback, "no-rollback", false, "Leave partial config in place on failure")
	pushCmd.Flags().IntVar(&pushWorkers, "workers", 0, "Concurrent device sessions (default 5)")
	pushCmd.Flags().StringVar(&pushAutoApprove, "auto-approve", "", "Approve findings up to this severity without prompting (low|medium|high)")
	pushCmd.Flags().StringVar(&pushSite, "site", "", "Select devices by site")
	pushCmd.Flags().StringVar(&pushRole, "role", "", "Select devices by role")
	pushCmd.Flags().StringVar(&pushModel, "model", "", "Select devices by model")
}

func runPush(cmd *cobra.Command, args []string) error {
	devices, err := selectDevices(args)
	if err != nil {
		return err
	}

	p, err := buildPlan()
	if err != nil {
		return err
	}

	fmt.Print(p.Preview())
	fmt.Printf("\nTargets (%d): %s\n", len(devices), deviceNames(devices))
	if !pushExecute {
		fmt.Println(cli.Dim("Dry-run: validating only. Use -x to execute."))
	}
	fmt.Println()

	eng, closeHistory, err := buildEngine(devices, p)
	if err != nil {
		return err
	}
	defer closeHistory()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := eng.Run(ctx, devices, p)

	printResult(result)
	if !result.Succeeded() {
		return fmt.Errorf("run %s", result.Status)
	}
	return nil
}

func selectDevices(names []string) ([]*inventory.Device, error) {
	if inventoryPath == "" {
		return nil, fmt.Errorf("no inventory: pass -I or set it with 'genie settings set inventory <path>'")
	}
	inv, err := inventory.Load(inventoryPath)
	if err != nil {
		return nil, err
	}

	if len(names) > 0 {
		if pushSite != "" || pushRole != "" || pushModel != "" {
			return nil, fmt.Errorf("name arguments and filter flags are mutually exclusive")
		}
		// Accept both "sw1 sw2" and "sw1,sw2".
		return inv.Resolve(util.SplitCommaSeparated(strings.Join(names, ",")))
	}

	if pushSite == "" && pushRole == "" && pushModel == "" {
		return nil, fmt.Errorf("no devices selected: name them or use --site/--role/--model")
	}
	devices, err := inv.Filter(inventory.FilterOptions{
		Site:  pushSite,
		Role:  pushRole,
		Model: pushModel,
	})
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices match the given filters")
	}
	return devices, nil
}

func buildPlan() (*plan.Plan, error) {
	sources := 0
	for _, set := range []bool{len(pushCommands) > 0, pushFile != "", pushTemplate != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of -c, -f, or -t must be given")
	}

	opts := plan.Options{
		DryRun:              !pushExecute,
		VerifyCommand:       pushVerify,
		AcceptNonReversible: pushNoRollback,
	}

	var lines []string
	kind := plan.KindLiteral
	switch {
	case len(pushCommands) > 0:
		lines = pushCommands
	case pushFile != "":
		data, err := os.ReadFile(pushFile)
		if err != nil {
			return nil, fmt.Errorf("reading command file: %w", err)
		}
		lines = strings.Split(string(data), "\n")
	default:
		store, err := template.NewStore(userSettings.GetTemplateDir())
		if err != nil {
			return nil, err
		}
		tmpl, err := store.Get(pushTemplate)
		if err != nil {
			return nil, err
		}
		vars, err := parseVars(pushVars)
		if err != nil {
			return nil, err
		}
		lines, err = tmpl.Render(vars)
		if err != nil {
			return nil, err
		}
		kind = plan.KindRendered
		opts.Source = plan.SourceTemplate
		opts.Template = pushTemplate
	}

	return plan.New(lines, kind, opts)
}

func buildEngine(devices []*inventory.Device, p *plan.Plan) (*engine.Engine, func(), error) {
	var creds connector.Credentials
	if pushExecute {
		var err error
		creds, err = gatherCredentials()
		if err != nil {
			return nil, nil, err
		}
	}

	backend, err := openHistoryBackend()
	if err != nil {
		util.Warnf("History disabled: %v", err)
	}
	closeHistory := func() {}

	emitters := engine.MultiEmitter{
		cli.NewConsoleProgress(verbose, deviceNameList(devices)),
	}
	if backend != nil {
		recorder := history.NewRecorder(backend, historyUser(), p.DryRun)
		emitters = append(emitters, recorder)
		closeHistory = func() { backend.Close() }
		util.WithRun(recorder.RunID()).Infof("Recording history for %d devices", len(devices))
	}

	decider, err := buildDecider()
	if err != nil {
		return nil, nil, err
	}

	workers := pushWorkers
	if workers == 0 {
		workers = userSettings.Workers
	}

	eng, err := engine.New(engine.Config{
		Connector:  connector.NewSSHConnector(),
		Creds:      creds,
		Decider:    decider,
		Emitter:    emitters,
		Workers:    workers,
		NoRollback: pushNoRollback,
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, closeHistory, nil
}

func historyUser() string {
	if username != "" {
		return username
	}
	return os.Getenv("USER")
}

func buildDecider() (engine.Decider, error) {
	threshold := pushAutoApprove
	if threshold == "" {
		threshold = userSettings.AutoApprove
	}
	if threshold == "" {
		return newPromptDecider(), nil
	}
	sev, err := plan.ParseSeverity(threshold)
	if err != nil {
		return nil, fmt.Errorf("--auto-approve: %w", err)
	}
	if sev >= plan.SeverityCritical {
		return nil, fmt.Errorf("--auto-approve critical is not allowed")
	}
	return engine.PolicyDecider{ApproveUpTo: sev}, nil
}

func openHistoryBackend() (history.Backend, error) {
	if addr := userSettings.HistoryRedis; addr != "" {
		return history.NewRedisBackend(addr, "", 0)
	}
	return history.NewFileBackend(userSettings.GetHistoryPath(), history.RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 10,
	})
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--var must be key=value, got %q", pair)
		}
		vars[k] = v
	}
	return vars, nil
}

func printResult(result *engine.RunResult) {
	fmt.Println()
	t := cli.NewTable("DEVICE", "STATE", "APPLIED", "DETAIL")
	for _, sess := range result.Sessions {
		detail := ""
		if err := sess.Err(); err != nil {
			detail = err.Error()
		}
		t.Row(
			sess.Device.Name,
			cli.FormatState(sess.State()),
			fmt.Sprintf("%d/%d", len(sess.Applied()), sess.Plan.Len()),
			detail,
		)
	}
	t.Flush()

	if verbose {
		for _, sess := range result.Sessions {
			if out := sess.VerifyOutput(); out != "" {
				fmt.Printf("\n%s verify output:\n%s\n", cli.Bold(sess.Device.Name), out)
			}
			for _, f := range sess.Findings() {
				fmt.Printf("%s %s\n", cli.FormatSeverity(f.Severity), f.String())
			}
		}
	}
}

func deviceNames(devices []*inventory.Device) string {
	return strings.Join(deviceNameList(devices), ", ")
}

func deviceNameList(devices []*inventory.Device) []string {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names
}
