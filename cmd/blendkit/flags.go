package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blendkit/internal/compress"
	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/tree"
)

var (
	logLevel   string
	logFormat  string
	debug      bool
	configFile string

	outDir       string
	treeFormat   string
	codecName    string
	threshold    int
	maxRounds    int
	blendCodec   string
	printTree    bool
	writeFolder  bool
	writeBlend   bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Sources:     cli.EnvVars(envConfig),
			Destination: &configFile,
		},
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output directory",
			Destination: &outDir,
		},
		&cli.StringFlag{
			Name:        "format",
			Aliases:     []string{"f"},
			Usage:       "tree format (json, yaml, cbor)",
			Value:       string(tree.JSON),
			Destination: &treeFormat,
		},
	}
}

func treeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "compress",
			Usage:       "codec for large attribute layers (none, zlib, zstd, lz4)",
			Value:       compress.Zlib.String(),
			Destination: &codecName,
		},
		&cli.IntFlag{
			Name:        "compress-threshold",
			Usage:       "pack attribute layers larger than this many bytes (0 = never)",
			Value:       tree.DefaultThreshold,
			Destination: &threshold,
		},
	}
}

func writeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "max-rounds",
			Usage:       "direct-data worklist cap per block",
			Destination: &maxRounds,
		},
		&cli.StringFlag{
			Name:        "output-compress",
			Usage:       "wrap the written .blend (none, gzip, zstd)",
			Destination: &blendCodec,
		},
	}
}

// encodeOptions builds writer options from the write flags.
func encodeOptions() (blend.EncodeOptions, error) {
	codec, err := compress.Parse(blendCodec)
	if err != nil {
		return blend.EncodeOptions{}, err
	}
	return blend.EncodeOptions{MaxRounds: maxRounds, Compression: codec}, nil
}

// treeOptions builds projection options from the tree flags.
func treeOptions() (tree.Options, error) {
	codec, err := compress.Parse(codecName)
	if err != nil {
		return tree.Options{}, err
	}
	return tree.Options{Threshold: threshold, Codec: codec}, nil
}
