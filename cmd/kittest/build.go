package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/kitten/classfile"
	"github.com/chazu/kitten/classstore"
	"github.com/chazu/kitten/compiler"
	"github.com/chazu/kitten/harness"
	"github.com/chazu/kitten/manifest"
)

var log = commonlog.GetLogger("kitten.kittest")

func newBuildCmd(a *app) *cobra.Command {
	var outDir, archive string
	cmd := &cobra.Command{
		Use:   "build [files...]",
		Short: "Compile Kitten sources into class files",
		Long: `Compile the given .kit files, or every .kit file under the configured
source directories, writing one class file per class and harness. Classes
with errors produce no output; the others are still written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = a.manifest.OutputDir()
			}
			if archive == "" {
				archive = a.manifest.ArchivePath()
			}
			files := args
			if len(files) == 0 {
				var err error
				if files, err = a.manifest.SourceFiles(); err != nil {
					return err
				}
				if len(files) == 0 {
					return fmt.Errorf("no %s files under %v", manifest.SourceExtension, a.manifest.Source.Dirs)
				}
			}
			return a.build(cmd, files, outDir, archive)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "class output directory (default from kitten.toml)")
	cmd.Flags().StringVar(&archive, "archive", "", "also store classes in this SQLite archive")
	return cmd
}

func (a *app) build(cmd *cobra.Command, files []string, outDir, archive string) error {
	opts := compiler.Options{Harness: a.manifest.HarnessOptions(), Debug: true}

	var classes []*classfile.Class
	origin := make(map[string]string) // class name -> source file
	var declared []string
	failed := 0
	for _, path := range files {
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading source: %w", err)
		}
		comp := compiler.CompileSource(path, string(text), opts)
		if err := comp.Err(); err != nil {
			cmd.PrintErrln(err)
			failed += comp.ErrorCount()
		}
		for _, u := range comp.Units {
			declared = append(declared, u.Decl.Name, harness.ClassName(u.Decl.Name, opts.Harness))
		}
		for _, c := range comp.Classes() {
			if prev, dup := origin[c.Name()]; dup {
				return fmt.Errorf("class %s is produced by both %s and %s", c.Name(), prev, path)
			}
			origin[c.Name()] = path
			classes = append(classes, c)
		}
	}

	for _, c := range classes {
		if _, err := classfile.WriteFile(outDir, c); err != nil {
			return err
		}
	}

	var store *classstore.Store
	if archive != "" {
		var err error
		if store, err = classstore.Open(archive); err != nil {
			return err
		}
		defer store.Close()
		if len(classes) > 0 {
			if _, err := store.Save(classes...); err != nil {
				return err
			}
		}
	}

	// Outputs of an earlier build that this one no longer produces.
	for _, name := range declared {
		if _, ok := origin[name]; ok {
			continue
		}
		if err := removeStale(outDir, store, name); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "compiled %d classes from %d files into %s\n", len(classes), len(files), outDir)
	if failed > 0 {
		return fmt.Errorf("%d errors", failed)
	}
	return nil
}

func removeStale(outDir string, store *classstore.Store, name string) error {
	path := filepath.Join(outDir, classfile.FileName(name))
	if err := os.Remove(path); err == nil {
		log.Infof("removed stale %s", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing stale class: %w", err)
	}
	if store == nil {
		return nil
	}
	if err := store.Delete(name); err != nil && !errors.Is(err, classstore.ErrClassNotFound) {
		return err
	}
	return nil
}
