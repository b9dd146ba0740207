package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/chazu/kitten/classfile"
	"github.com/chazu/kitten/pkg/bytecode"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version, the class and bytecode format versions, and the Go version.",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("class format\t", classfile.FormatVersion)
			cmd.Println("bytecode format\t", bytecode.BytecodeVersion)

			info, ok := debug.ReadBuildInfo()
			if !ok || info.Main.Version == "" {
				cmd.Println("version: unknown")
				return
			}
			cmd.Println("tool version\t", info.Main.Version)
			cmd.Println("go version\t", info.GoVersion)
		},
	}
}
