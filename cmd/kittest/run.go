package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/kitten/classfile"
	"github.com/chazu/kitten/classstore"
	"github.com/chazu/kitten/harness"
	"github.com/chazu/kitten/pkg/bytecode"
)

func newRunCmd(a *app) *cobra.Command {
	var dir, archive string
	var trace bool
	cmd := &cobra.Command{
		Use:   "run <class>",
		Short: "Run the test harness of a compiled class",
		Long: `Load compiled classes from the output directory, or from an archive,
and run the main method of the harness generated for <class>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" && archive != "" {
				return fmt.Errorf("--dir and --archive are mutually exclusive")
			}
			classes, err := a.loadClasses(dir, archive)
			if err != nil {
				return err
			}
			prog, err := classfile.NewProgram(classes...)
			if err != nil {
				return err
			}

			target := harness.ClassName(args[0], a.manifest.HarnessOptions())
			if _, ok := prog.Class(target); !ok {
				return fmt.Errorf("no harness %s among %d loaded classes", target, len(classes))
			}

			vm := bytecode.NewVM(prog, bytecode.WithOutput(cmd.OutOrStdout()))
			vm.Trace = trace
			return vm.RunMain(target)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "load classes from this directory (default from kitten.toml)")
	cmd.Flags().StringVar(&archive, "archive", "", "load classes from this SQLite archive")
	cmd.Flags().BoolVar(&trace, "trace", false, "log every executed instruction at debug level")
	return cmd
}

// loadClasses reads every class from archive when set, otherwise from dir or
// the configured output directory.
func (a *app) loadClasses(dir, archive string) ([]*classfile.Class, error) {
	if archive != "" {
		store, err := classstore.Open(archive)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadAll()
	}
	if dir == "" {
		dir = a.manifest.OutputDir()
	}
	return classfile.LoadDir(dir)
}
