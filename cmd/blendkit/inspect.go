package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/sdna"
)

func openDocument(ctx context.Context, path string) (*blend.Document, error) {
	doc, err := blend.Open(ctx, path)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: read %s: %v", path, err), 1)
	}
	return doc, nil
}

func inspectCmd() *cli.Command {
	var (
		showBlocks bool
		showSchema bool
		structName string
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarise the header, blocks and named objects of a .blend file",
		ArgsUsage: "<file.blend>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "blocks", Usage: "list every block", Destination: &showBlocks},
			&cli.BoolFlag{Name: "schema", Usage: "list schema structs and size mismatches", Destination: &showSchema},
			&cli.StringFlag{Name: "struct", Usage: "print the layout of one schema struct", Destination: &structName},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := requireInput(cmd.Args().Slice())
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			doc, err := openDocument(ctx, path)
			if err != nil {
				return err
			}
			out := cmd.Root().Writer
			printSummary(out, path, doc)
			if showBlocks {
				printBlocks(out, doc)
			}
			if showSchema {
				printSchema(out, doc.Schema)
			}
			if structName != "" {
				st, ok := doc.Schema.Lookup(structName)
				if !ok {
					return cli.Exit(fmt.Sprintf("error: no struct %q in schema", structName), 1)
				}
				printStruct(out, st)
			}
			return nil
		},
	}
}

func printSummary(w io.Writer, path string, doc *blend.Document) {
	st := doc.Stats()
	_, _ = fmt.Fprintf(w, "file:       %s\n", path)
	_, _ = fmt.Fprintf(w, "version:    %s\n", doc.Version)
	_, _ = fmt.Fprintf(w, "endian:     %s\n", doc.Order)
	_, _ = fmt.Fprintf(w, "pointer:    %c\n", doc.PointerByte)
	_, _ = fmt.Fprintf(w, "blocks:     %d (%d typed, %d raw)\n", st.Blocks, st.Typed, st.Raw)
	_, _ = fmt.Fprintf(w, "structs:    %d\n", st.Structs)
	_, _ = fmt.Fprintf(w, "addresses:  %d\n", st.Addresses)
	_, _ = fmt.Fprintf(w, "named:      %d\n", st.Named)
	for _, key := range doc.Main.Keys() {
		_, _ = fmt.Fprintf(w, "  %-4s %d\n", key, len(doc.Main.Get(key)))
	}
	if doc.Render != nil || doc.Thumbnail != nil {
		_, _ = fmt.Fprintf(w, "previews:   rend %d bytes, test %d bytes\n", len(doc.Render), len(doc.Thumbnail))
	}
}

func printBlocks(w io.Writer, doc *blend.Document) {
	_, _ = fmt.Fprintln(w, "\nblocks:")
	for i, b := range doc.Blocks {
		name := ""
		if b.SDNA > 0 {
			if st, err := doc.Schema.At(b.SDNA); err == nil {
				name = st.Name
			}
		}
		_, _ = fmt.Fprintf(w, "  %5d %-4s %v sdna=%d %-20s count=%d len=%d\n",
			i, strings.TrimRight(b.Code, "\x00"), b.Addr, b.SDNA, name, b.Count, len(b.Data))
	}
}

func printSchema(w io.Writer, s *sdna.Schema) {
	_, _ = fmt.Fprintf(w, "\nschema: %d names, %d types, %d structs\n", len(s.Names), len(s.Types), len(s.Structs))
	for _, st := range s.Structs {
		_, _ = fmt.Fprintf(w, "  %4d %s\n", st.Index, st)
	}
	if bad := s.SizeMismatches(); len(bad) > 0 {
		_, _ = fmt.Fprintln(w, "size mismatches:")
		for _, m := range bad {
			_, _ = fmt.Fprintf(w, "  %s\n", m)
		}
	}
}

func printStruct(w io.Writer, st *sdna.Struct) {
	_, _ = fmt.Fprintf(w, "\n%s (index %d, %d bytes)\n", st.Name, st.Index, st.Size)
	for _, f := range st.Fields {
		_, _ = fmt.Fprintf(w, "  %6d %-24s %s\n", f.Offset, f.Decl, f.Type)
	}
}
