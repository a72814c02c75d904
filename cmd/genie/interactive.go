package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/config-genie/genie/pkg/cli"
	"github.com/config-genie/genie/pkg/connector"
	"github.com/config-genie/genie/pkg/engine"
)

// promptDecider asks the operator on stdin. The engine serializes
// confirmation requests, so prompts never interleave.
type promptDecider struct {
	in *bufio.Reader
}

func newPromptDecider() *promptDecider {
	return &promptDecider{in: bufio.NewReader(os.Stdin)}
}

func (d *promptDecider) Confirm(req engine.ConfirmationRequest) (bool, error) {
	fmt.Println()
	switch req.Kind {
	case engine.RequestRollback:
		fmt.Printf("%s %s: roll back %d applied commands?\n",
			cli.Yellow("ROLLBACK"), cli.Bold(req.Device.Name), len(req.Commands))
	default:
		fmt.Printf("%s %s: plan has %s findings:\n",
			cli.Yellow("CONFIRM"), cli.Bold(req.Device.Name), cli.FormatSeverity(req.MaxSeverity()))
		for _, f := range req.Findings {
			fmt.Printf("  %s %s\n", cli.FormatSeverity(f.Severity), f.String())
		}
	}
	for _, c := range req.Commands {
		fmt.Printf("    %s\n", c)
	}
	fmt.Printf("Proceed? [y/N] ")

	line, err := d.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// gatherCredentials resolves the device login. The password comes from
// GENIE_PASSWORD or a terminal prompt; it is never a flag, so it cannot
// leak into shell history or process listings.
func gatherCredentials() (connector.Credentials, error) {
	user := username
	if user == "" {
		return connector.Credentials{}, fmt.Errorf("no username: pass -u or set it with 'genie settings set username <name>'")
	}

	password := os.Getenv("GENIE_PASSWORD")
	if password == "" {
		fmt.Printf("Password for %s: ", user)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return connector.Credentials{}, fmt.Errorf("reading password: %w", err)
		}
		password = string(raw)
	}
	if password == "" {
		return connector.Credentials{}, fmt.Errorf("empty password")
	}

	return connector.Credentials{
		Username: user,
		Password: password,
		Enable:   os.Getenv("GENIE_ENABLE"),
	}, nil
}
