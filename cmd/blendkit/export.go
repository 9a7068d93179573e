package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blendkit/internal/export"
	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/tree"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write one tree file per named object into <out>/<file>/",
		ArgsUsage: "<file.blend>",
		Flags:     append(outputFlags(), treeFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyOutputConfig(cmd, cfg)
			path, err := requireInput(cmd.Args().Slice())
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			doc, err := openDocument(ctx, path)
			if err != nil {
				return err
			}
			dir, err := resolveOutDir(outDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: output directory: %v", err), 1)
			}
			return exportFolder(ctx, doc, dir, path)
		},
	}
}

func exportFolder(ctx context.Context, doc *blend.Document, dir, path string) error {
	name, err := inputName(path)
	if err != nil {
		return cli.Exit("error: "+err.Error(), 1)
	}
	opts, err := treeOptions()
	if err != nil {
		return cli.Exit("error: "+err.Error(), 1)
	}
	format, err := tree.ParseFormat(treeFormat)
	if err != nil {
		return cli.Exit("error: "+err.Error(), 1)
	}
	if _, err := export.Folder(ctx, doc, dir, name, export.Options{Tree: opts, Format: format}); err != nil {
		return cli.Exit(fmt.Sprintf("error: export %s: %v", path, err), 1)
	}
	return nil
}
