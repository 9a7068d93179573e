package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blendkit/internal/logger"
)

// cfg is loaded once in the root Before hook.
var cfg Config

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	// Logging flags reach every subcommand; the rest belong to the root
	// action only, since subcommands declare their own.
	rootFlags := append(outputFlags(), treeFlags()...)
	rootFlags = append(rootFlags, writeFlags()...)
	rootFlags = append(rootFlags,
		&cli.BoolFlag{Name: "print", Usage: "write the document tree to the output directory", Destination: &printTree},
		&cli.BoolFlag{Name: "folder", Usage: "export one file per named object", Destination: &writeFolder},
		&cli.BoolFlag{Name: "write", Usage: "re-encode to out.blend and print the re-read tree", Destination: &writeBlend},
	)
	flags := append(loggingFlags(), local(rootFlags)...)

	return &cli.Command{
		Name:      "blendkit",
		Usage:     "Read, inspect and rewrite .blend files",
		ArgsUsage: "[file.blend]",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     flags,
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg = LoadConfig()
			applyLoggingConfig(cmd, cfg)
			return logger.WithContext(ctx, newLogger(stderr)), nil
		},
		Action: rootAction,
		Commands: []*cli.Command{
			inspectCmd(),
			dumpCmd(),
			exportCmd(),
			roundtripCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

func local(flags []cli.Flag) []cli.Flag {
	for _, f := range flags {
		switch x := f.(type) {
		case *cli.StringFlag:
			x.Local = true
		case *cli.IntFlag:
			x.Local = true
		case *cli.BoolFlag:
			x.Local = true
		}
	}
	return flags
}

func newLogger(w io.Writer) logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	if logFormat == "json" {
		return logger.JSON(w, level)
	}
	return logger.Pretty(w, level)
}

// rootAction runs the output steps selected by the root flags on one file.
func rootAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return cli.ShowAppHelp(cmd)
	}
	if !printTree && !writeFolder && !writeBlend {
		return cli.Exit("error: nothing to do; pass --print, --folder or --write, or use a subcommand", 1)
	}
	applyOutputConfig(cmd, cfg)

	path := cmd.Args().First()
	doc, err := openDocument(ctx, path)
	if err != nil {
		return err
	}
	dir, err := resolveOutDir(outDir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: output directory: %v", err), 1)
	}

	if printTree {
		if err := writeTreeFile(ctx, doc, dir, "out"); err != nil {
			return err
		}
	}
	if writeFolder {
		if err := exportFolder(ctx, doc, dir, path); err != nil {
			return err
		}
	}
	if writeBlend {
		if _, err := roundtrip(ctx, doc, dir); err != nil {
			return err
		}
	}
	return nil
}
