package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/snowxfer/cmd/archive"
	"github.com/sidkik/snowxfer/cmd/bugtool"
	"github.com/sidkik/snowxfer/cmd/check"
	configCmd "github.com/sidkik/snowxfer/cmd/config"
	"github.com/sidkik/snowxfer/cmd/configure"
	"github.com/sidkik/snowxfer/cmd/remount"
	"github.com/sidkik/snowxfer/cmd/transfer"
	"github.com/sidkik/snowxfer/cmd/util"
	"github.com/sidkik/snowxfer/cmd/version"
	"github.com/sidkik/snowxfer/pkg/config"
)

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(config.VerboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "snowxfer",
		Short: "Move drives onto a Snowball Edge, and check that nothing was missed.",
		Long: "snowxfer unlocks a Snowball Edge, creates an AWS CLI profile for it,\n" +
			"uploads drives to it or to the Deep Archive storage class, and\n" +
			"compares each drive with the objects that were uploaded from it.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false,
		"Log debug output. Also enabled by setting "+config.VerboseLogKey+"=true.")

	rootCmd.AddCommand(
		archive.New(),
		bugtool.New(),
		check.New(),
		configCmd.New(),
		configure.New(),
		remount.New(),
		transfer.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
