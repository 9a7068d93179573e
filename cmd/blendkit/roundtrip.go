package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/tree"
)

func roundtripCmd() *cli.Command {
	flags := append(outputFlags(), treeFlags()...)
	flags = append(flags, writeFlags()...)

	return &cli.Command{
		Name:      "roundtrip",
		Usage:     "Re-encode a .blend file to <out>/out.blend, read it back and compare trees",
		ArgsUsage: "<file.blend>",
		Flags:     flags,
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
			same, err := roundtrip(ctx, doc, dir)
			if err != nil {
				return err
			}
			if !same {
				return cli.Exit("error: re-read tree differs from the source tree", 1)
			}
			_, _ = fmt.Fprintf(cmd.Root().Writer, "round trip ok: %d named objects\n", doc.Main.Len())
			return nil
		},
	}
}

// roundtrip writes doc to dir/out.blend, reads it back, writes the re-read
// tree next to it and reports whether both trees match.
func roundtrip(ctx context.Context, doc *blend.Document, dir string) (bool, error) {
	log := logger.FromContext(ctx)
	opts, err := encodeOptions()
	if err != nil {
		return false, cli.Exit("error: "+err.Error(), 1)
	}
	path := filepath.Join(dir, "out.blend")
	if err := blend.WriteFile(ctx, path, doc, opts); err != nil {
		return false, cli.Exit(fmt.Sprintf("error: write %s: %v", path, err), 1)
	}
	back, err := openDocument(ctx, path)
	if err != nil {
		return false, err
	}
	if err := writeTreeFile(ctx, back, dir, "out"); err != nil {
		return false, err
	}

	topts, err := treeOptions()
	if err != nil {
		return false, cli.Exit("error: "+err.Error(), 1)
	}
	before, err := tree.Marshal(tree.New(doc, topts).Document(), tree.JSON)
	if err != nil {
		return false, cli.Exit(fmt.Sprintf("error: encode tree: %v", err), 1)
	}
	after, err := tree.Marshal(tree.New(back, topts).Document(), tree.JSON)
	if err != nil {
		return false, cli.Exit(fmt.Sprintf("error: encode tree: %v", err), 1)
	}
	same := bytes.Equal(before, after)
	log.Info("round trip", "path", path, "named", back.Main.Len(), "identical", same)
	return same, nil
}
