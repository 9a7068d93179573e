// Package export writes a decoded document as a folder of per-object tree
// files.
package export

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/samcharles93/blendkit/internal/logger"
	"github.com/samcharles93/blendkit/pkg/blend"
	"github.com/samcharles93/blendkit/pkg/tree"
)

const (
	metaFile      = "meta"
	globFile      = "glob"
	renderFile    = "rend.bin"
	thumbnailFile = "test.bin"
)

type Options struct {
	Tree   tree.Options
	Format tree.Format
}

// Meta describes one export run. It is written last, as JSON, to the meta
// file at the folder root.
type Meta struct {
	RunID       string    `json:"run_id"`
	Created     time.Time `json:"created"`
	Source      string    `json:"source"`
	Version     string    `json:"version"`
	Endian      string    `json:"endian"`
	PointerByte string    `json:"pointer_byte"`
	Format      string    `json:"format"`
	Schema      Schema    `json:"schema"`
	Files       []File    `json:"files"`
}

type Schema struct {
	Digest  string `json:"blake3"`
	Structs []any  `json:"structs"`
}

type File struct {
	Path   string `json:"path"`
	Size   int    `json:"size"`
	Digest string `json:"blake3"`
}

// Folder writes doc under dir/name and returns the recorded metadata.
func Folder(ctx context.Context, doc *blend.Document, dir, name string, opts Options) (*Meta, error) {
	log := logger.FromContext(ctx)
	if opts.Format == "" {
		opts.Format = tree.JSON
	}
	root := filepath.Join(dir, SafeName(name))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	meta := &Meta{
		RunID:       uuid.NewString(),
		Created:     time.Now().UTC(),
		Source:      name,
		Version:     doc.Version,
		Endian:      endian(doc),
		PointerByte: string(rune(doc.PointerByte)),
		Format:      string(opts.Format),
	}
	if doc.Schema != nil {
		meta.Schema.Structs = tree.Schema(doc.Schema)
	}
	for _, b := range doc.Blocks {
		if b.Code == blend.CodeSchema {
			meta.Schema.Digest = digest(b.Data)
			break
		}
	}

	w := &folder{root: root, meta: meta}
	p := tree.New(doc, opts.Tree)

	if doc.Global != nil {
		data, err := tree.Marshal(p.Object(doc.Global), opts.Format)
		if err != nil {
			return nil, fmt.Errorf("glob: %w", err)
		}
		if err := w.write(globFile, data); err != nil {
			return nil, err
		}
	}
	if doc.Render != nil {
		if err := w.write(renderFile, doc.Render); err != nil {
			return nil, err
		}
	}
	if doc.Thumbnail != nil {
		if err := w.write(thumbnailFile, doc.Thumbnail); err != nil {
			return nil, err
		}
	}

	for _, key := range doc.Main.Keys() {
		used := map[string]int{}
		for _, e := range doc.Main.Get(key) {
			base := SafeName(e.Name)
			file := base
			if n := used[base]; n > 0 {
				file += "." + strconv.Itoa(n)
			}
			used[base]++

			data, err := tree.Marshal(p.Object(e.Object), opts.Format)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", key, e.Name, err)
			}
			rel := filepath.Join(SafeName(key), file)
			if err := w.write(rel, data); err != nil {
				return nil, err
			}
			log.Debug("exported object", "key", key, "name", e.Name, "path", rel)
		}
	}

	data, err := json.MarshalIndent(meta, "", " ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(root, metaFile), data, 0o644); err != nil {
		return nil, err
	}
	log.Info("exported folder", "path", root, "files", len(meta.Files), "run", meta.RunID)
	return meta, nil
}

func endian(doc *blend.Document) string {
	if doc.Order == nil {
		return ""
	}
	return doc.Order.String()
}

type folder struct {
	root string
	meta *Meta
}

func (f *folder) write(rel string, data []byte) error {
	full := filepath.Join(f.root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return err
	}
	f.meta.Files = append(f.meta.Files, File{Path: filepath.ToSlash(rel), Size: len(data), Digest: digest(data)})
	return nil
}

func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SafeName maps an object name to a portable file name. Letters, digits,
// '.', '_', '~', '-' and space are kept; other characters and a leading dot
// become "x" followed by the lowercase hex code point.
func SafeName(s string) string {
	if s == "" {
		return "x"
	}
	var b strings.Builder
	for i, r := range s {
		if keep(r) && (i > 0 || r != '.') {
			b.WriteRune(r)
			continue
		}
		b.WriteString("x" + strconv.FormatInt(int64(r), 16))
	}
	return b.String()
}

func keep(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '~', r == '-', r == ' ':
		return true
	}
	return false
}
