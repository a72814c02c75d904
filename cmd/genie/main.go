// Genie - Network Device Configuration Push Tool
//
// A CLI for pushing configuration command plans to fleets of network
// devices with:
//   - Dry-run by default (preview and validate, require -x to execute)
//   - Pre-flight validation with risk classification
//   - Automatic rollback of partially applied changes on failure
//   - Bounded parallelism across devices with stop-on-failure
//   - Run history (local file or shared Redis)
//
// Examples:
//
//	genie push sw1 sw2 -c "vlan 100" -c "name users"        # preview
//	genie push sw1 sw2 -c "vlan 100" -c "name users" -x     # execute
//	genie push --site nyc -t vlan-create --var vlan_id=100 --var vlan_name=users -x
//	genie inventory list --role access
//	genie history --device sw1 --limit 20
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/config-genie/genie/pkg/settings"
	"github.com/config-genie/genie/pkg/util"
	"github.com/config-genie/genie/pkg/version"
)

var (
	// Global option flags
	inventoryPath string
	username      string
	verbose       bool

	// Global state
	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "genie",
	Short:             "Network Device Configuration Push Tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Genie pushes configuration command plans to network devices.

Pushes preview and validate by default; use -x to execute. Failed
pushes are rolled back automatically unless --no-rollback is given.

  genie push <device>... -c <command> [-c <command>...] [-x]
  genie push <device>... -t <template> [--var k=v...] [-x]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if inventoryPath == "" {
			inventoryPath = userSettings.Inventory
		}
		if username == "" {
			username = userSettings.Username
		}

		// Quiet by default, verbose on -v.
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inventoryPath, "inventory", "I", "", "Device inventory file (YAML or TXT)")
	rootCmd.PersistentFlags().StringVarP(&username, "user", "u", "", "Device login username")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("genie dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("genie %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}
