package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/kitten/classfile"
)

func newDisasmCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.kclass>",
		Short: "Print the bytecode of a class file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := classfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), disassemble(c))
			return nil
		},
	}
}

func disassemble(c *classfile.Class) string {
	var sb strings.Builder
	hash := c.Hash()
	fmt.Fprintf(&sb, "class %s", c.Name())
	if c.Super() != "" {
		fmt.Fprintf(&sb, " extends %s", c.Super())
	}
	fmt.Fprintf(&sb, " ; %x\n", hash[:6])
	if c.SourceFile() != "" {
		fmt.Fprintf(&sb, "; source %s\n", c.SourceFile())
	}
	for _, f := range c.Fields() {
		static := ""
		if f.Static {
			static = "static "
		}
		fmt.Fprintf(&sb, "  %sfield %s %s\n", static, f.Type, f.Name)
	}
	for _, m := range c.Methods() {
		sb.WriteString("\n")
		chunk, err := m.Chunk()
		if err != nil {
			fmt.Fprintf(&sb, "; %v\n", err)
			continue
		}
		sb.WriteString(chunk.DisassembleWithName(fmt.Sprintf("%s.%s(%s):%s", c.Name(), m.Name, strings.Join(m.Params, ","), m.Return)))
	}
	return sb.String()
}
