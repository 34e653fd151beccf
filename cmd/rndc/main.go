// Command rndc sends an RNDC v1 administrative command to a BIND name
// server's control channel.
package main

import "github.com/b1-systems/rndc-go/cmd/rndc/commands"

func main() {
	commands.Execute()
}
