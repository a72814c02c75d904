package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/config-genie/genie/pkg/cli"
	"github.com/config-genie/genie/pkg/inventory"
)

var (
	invSite  string
	invRole  string
	invModel string
	invName  string
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inspect the device inventory",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := loadInventory()
		if err != nil {
			return err
		}

		devices, err := inv.Filter(inventory.FilterOptions{
			Site:        invSite,
			Role:        invRole,
			Model:       invModel,
			NamePattern: invName,
		})
		if err != nil {
			return err
		}

		t := cli.NewTable("NAME", "ADDRESS", "MODEL", "SITE", "ROLE")
		for _, d := range devices {
			t.Row(d.Name, d.Address, orDash(d.Model), orDash(d.Site), orDash(d.Role))
		}
		t.Flush()
		fmt.Printf("\n%d of %d devices\n", len(devices), inv.Len())
		return nil
	},
}

var inventoryShowCmd = &cobra.Command{
	Use:   "show <device>",
	Short: "Show one device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := loadInventory()
		if err != nil {
			return err
		}
		d := inv.Get(args[0])
		if d == nil {
			return fmt.Errorf("device %s not found", args[0])
		}

		fmt.Printf("%s\n", cli.Bold(d.Name))
		fmt.Printf("  address:      %s\n", d.Address)
		fmt.Printf("  model:        %s\n", orDash(d.Model))
		fmt.Printf("  site:         %s\n", orDash(d.Site))
		fmt.Printf("  role:         %s\n", orDash(d.Role))
		if len(d.Capabilities) > 0 {
			fmt.Printf("  capabilities: %s\n", strings.Join(d.Capabilities, ", "))
		}
		return nil
	},
}

func loadInventory() (*inventory.Inventory, error) {
	if inventoryPath == "" {
		return nil, fmt.Errorf("no inventory: pass -I or set it with 'genie settings set inventory <path>'")
	}
	return inventory.Load(inventoryPath)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	inventoryListCmd.Flags().StringVar(&invSite, "site", "", "Filter by site")
	inventoryListCmd.Flags().StringVar(&invRole, "role", "", "Filter by role")
	inventoryListCmd.Flags().StringVar(&invModel, "model", "", "Filter by model")
	inventoryListCmd.Flags().StringVar(&invName, "name", "", "Filter by name pattern")

	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryShowCmd)
}
