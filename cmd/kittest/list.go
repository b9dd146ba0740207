package main

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/chazu/kitten/classstore"
)

func newListCmd(a *app) *cobra.Command {
	var archive string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the classes of an archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if archive == "" {
				archive = a.manifest.ArchivePath()
			}
			if archive == "" {
				return fmt.Errorf("no archive: pass --archive or set output.archive in kitten.toml")
			}
			store, err := classstore.Open(archive)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderEntries(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "SQLite class archive (default from kitten.toml)")
	return cmd
}

func renderEntries(entries []classstore.Entry) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Class", "Extends", "Source", "Hash", "Bytes"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})

	for _, e := range entries {
		table.Append([]string{e.Name, e.Super, e.Source, e.Hash[:12], fmt.Sprintf("%d", e.Size)})
	}
	table.SetFooter([]string{fmt.Sprintf("Total Classes %d", len(entries)), "", "", "", ""})

	table.Render()
	return buf.String()
}
