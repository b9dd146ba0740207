package main

import (
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/kitten/manifest"
)

const rootLongDescription = `kittest compiles Kitten classes and their test declarations into class
files. Every class with tests gets a companion harness class whose main runs
each test on a fresh instance and reports passed or failed assertions.

Settings are read from the nearest kitten.toml; flags override them.`

// app carries the state shared by subcommands.
type app struct {
	projectDir string
	verbose    int
	logFile    string

	manifest *manifest.Manifest
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "kittest",
		Short:         "Kitten test harness compiler",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.projectDir, "project", "C", ".", "directory to search upward for kitten.toml")
	cmd.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	cmd.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr")

	cmd.AddCommand(
		newBuildCmd(a),
		newRunCmd(a),
		newDisasmCmd(a),
		newListCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the project configuration and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	m, err := manifest.FindAndLoad(a.projectDir)
	if err != nil {
		return err
	}
	if m == nil {
		if m, err = manifest.Default(a.projectDir); err != nil {
			return err
		}
	}
	a.manifest = m

	verbosity := m.Log.Verbosity
	if cmd.Flags().Changed("verbose") {
		verbosity = a.verbose
	}
	path := m.LogFile()
	if a.logFile != "" {
		path = a.logFile
	}
	if path == "" {
		commonlog.Configure(verbosity, nil)
	} else {
		commonlog.Configure(verbosity, &path)
	}
	return nil
}
