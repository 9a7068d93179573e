package blend

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/blendkit/internal/compress"
	"github.com/samcharles93/blendkit/internal/logger"
)

// Open decodes the blend file at path. Files wrapped in gzip, zstd or lz4
// are decompressed first. The file is mapped read-only for the duration of
// the decode when mmap is available.
func Open(ctx context.Context, path string) (*Document, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	defer release()

	if codec := compress.Sniff(data); codec != compress.None {
		logger.FromContext(ctx).Debug("decompressing blend file", "path", path, "codec", codec.String())
		if data, err = compress.Decompress(codec, data); err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
	}
	doc, err := Decode(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return doc, nil
}

// mapFile returns the file contents and a function releasing them.
func mapFile(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := stat.Size()
	if size > int64(int(^uint(0)>>1)) {
		return nil, nil, fmt.Errorf("open %s: file too large (%d bytes)", path, size)
	}
	if size > 0 {
		data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
		if err == nil {
			return data, func() { _ = unix.Munmap(data) }, nil
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	return data, func() {}, nil
}

// WriteFile encodes doc to path, compressing it when opts asks for it.
func WriteFile(ctx context.Context, path string, doc *Document, opts EncodeOptions) error {
	data, err := Encode(ctx, doc, opts)
	if err != nil {
		return err
	}
	if data, err = compress.Compress(opts.Compression, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return f.Close()
}
