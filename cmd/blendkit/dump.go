package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/tree"
)

func dumpCmd() *cli.Command {
	var (
		key    string
		name   string
		toFile bool
	)

	flags := append(outputFlags(), treeFlags()...)
	flags = append(flags,
		&cli.StringFlag{Name: "key", Usage: "dump only objects under this registry key (e.g. ob)", Destination: &key},
		&cli.StringFlag{Name: "name", Usage: "dump only the object with this name (requires --key)", Destination: &name},
		&cli.BoolFlag{Name: "file", Usage: "write out.<format> to the output directory instead of stdout", Destination: &toFile},
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Print the linked object tree",
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
			if toFile {
				dir, err := resolveOutDir(outDir)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: output directory: %v", err), 1)
				}
				return writeTreeFile(ctx, doc, dir, "out")
			}

			opts, err := treeOptions()
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			format, err := tree.ParseFormat(treeFormat)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			p := tree.New(doc, opts)

			var v any
			switch {
			case name != "":
				o, ok := doc.Lookup(key, name)
				if !ok {
					return cli.Exit(fmt.Sprintf("error: no %s named %q", key, name), 1)
				}
				v = p.Object(o)
			case key != "":
				entries := doc.Main.Get(key)
				list := make([]any, len(entries))
				for i, e := range entries {
					list[i] = p.Object(e.Object)
				}
				v = list
			default:
				v = p.Document()
			}
			data, err := tree.Marshal(v, format)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: encode tree: %v", err), 1)
			}
			_, err = cmd.Root().Writer.Write(data)
			return err
		},
	}
}

// writeTreeFile writes the whole document tree to dir/<stem>.<format>.
func writeTreeFile(ctx context.Context, doc *blend.Document, dir, stem string) error {
	opts, err := treeOptions()
	if err != nil {
		return cli.Exit("error: "+err.Error(), 1)
	}
	format, err := tree.ParseFormat(treeFormat)
	if err != nil {
		return cli.Exit("error: "+err.Error(), 1)
	}
	data, err := tree.Marshal(tree.New(doc, opts).Document(), format)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: encode tree: %v", err), 1)
	}
	path := filepath.Join(dir, stem+"."+format.Ext())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cli.Exit(fmt.Sprintf("error: write %s: %v", path, err), 1)
	}
	logger.FromContext(ctx).Info("wrote tree", "path", path, "bytes", len(data))
	return nil
}
