package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/config-genie/genie/pkg/cli"
	"github.com/config-genie/genie/pkg/template"
)

var (
	tmplTag  string
	tmplVars []string
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage command templates",
	Long: `Manage command templates.

Builtin templates ship with genie; user templates are YAML or JSON
files in the template directory and shadow builtins by name.

Examples:
  genie template list --tag layer2
  genie template show vlan-create
  genie template render vlan-create --var vlan_id=100 --var vlan_name=users
  genie template save my-change.yaml
  genie template delete my-change`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTemplateStore()
		if err != nil {
			return err
		}
		t := cli.NewTable("NAME", "COMMANDS", "TAGS", "DESCRIPTION")
		for _, tmpl := range store.List(tmplTag) {
			t.Row(tmpl.Name, fmt.Sprintf("%d", len(tmpl.Commands)),
				strings.Join(tmpl.Tags, ","), tmpl.Description)
		}
		t.Flush()
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTemplateStore()
		if err != nil {
			return err
		}
		tmpl, err := store.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s  %s\n", cli.Bold(tmpl.Name), cli.Dim(tmpl.Description))
		for _, c := range tmpl.Commands {
			fmt.Printf("  %s\n", c)
		}
		if vars := tmpl.Placeholders(); len(vars) > 0 {
			fmt.Printf("variables: %s\n", strings.Join(vars, ", "))
		}
		return nil
	},
}

var templateSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search templates by name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTemplateStore()
		if err != nil {
			return err
		}
		for _, tmpl := range store.Search(args[0]) {
			fmt.Printf("%s  %s\n", tmpl.Name, cli.Dim(tmpl.Description))
		}
		return nil
	},
}

var templateRenderCmd = &cobra.Command{
	Use:   "render <name>",
	Short: "Render a template with variables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTemplateStore()
		if err != nil {
			return err
		}
		tmpl, err := store.Get(args[0])
		if err != nil {
			return err
		}
		vars, err := parseVars(tmplVars)
		if err != nil {
			return err
		}
		lines, err := tmpl.Render(vars)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}

var templateSaveCmd = &cobra.Command{
	Use:   "save <file>",
	Short: "Save a template file into the template directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTemplateStore()
		if err != nil {
			return err
		}
		tmpl, err := template.LoadTemplateFile(args[0])
		if err != nil {
			return err
		}
		if err := store.Save(tmpl); err != nil {
			return err
		}
		fmt.Printf("Saved template %s\n", tmpl.Name)
		return nil
	},
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a user template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTemplateStore()
		if err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted template %s\n", args[0])
		return nil
	},
}

func openTemplateStore() (*template.Store, error) {
	return template.NewStore(userSettings.GetTemplateDir())
}

func init() {
	templateListCmd.Flags().StringVar(&tmplTag, "tag", "", "Filter by tag")
	templateRenderCmd.Flags().StringArrayVar(&tmplVars, "var", nil, "Variable key=value (repeatable)")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateSearchCmd)
	templateCmd.AddCommand(templateRenderCmd)
	templateCmd.AddCommand(templateSaveCmd)
	templateCmd.AddCommand(templateDeleteCmd)
}
