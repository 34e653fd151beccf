package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	appversion "github.com/b1-systems/rndc-go/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print rndc build information",
		Args:  cobra.NoArgs,
		// Printing the version needs no configuration, so skip the
		// root command's config-loading PersistentPreRunE.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return nil },
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(appversion.Full("rndc"))
			return nil
		},
	}
}
