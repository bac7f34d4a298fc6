package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dBook/cmd/console"
	"github.com/ValentinKolb/dBook/cmd/serve"
	"github.com/ValentinKolb/dBook/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dbook",
		Short: "facility booking console with optimistic updates",
		Long: fmt.Sprintf(`dBook (v%s)

A booking console for sports facilities and rooms written in Go.
Changes are applied locally right away and reconciled with the data API,
rejected changes are rolled back automatically.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dBook",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dBook v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(console.ConsoleCommands)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
