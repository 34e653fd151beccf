package commands

import (
	"fmt"
	"strings"

	"github.com/b1-systems/rndc-go/internal/client"
)

// runCommand joins args into a single RNDC command string (e.g.
// ["freeze", "zone.example"] -> "freeze zone.example") and sends it to
// the configured name server, printing the response.
func runCommand(args []string) error {
	command := strings.Join(args, " ")

	c := client.Client{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		Key:  cfg.Server.Key,
	}

	resp, err := c.Do(command)
	if err != nil {
		return fmt.Errorf("rndc %s: %w", command, err)
	}

	fmt.Println(resp)
	return nil
}
