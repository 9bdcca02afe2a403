package maildir

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// gzipMagic is the gzip member header: ID1, ID2 and CM=deflate.
var gzipMagic = []byte{0x1f, 0x8b, 0x08}

// Job pairs an original message with its staged compressed copy.
type Job struct {
	// Original is the path of the uncompressed message below cur/.
	Original string

	// Staged is the path of the compressed copy in tmp/. Its base name is
	// the name the message will be published under.
	Staged string

	// Source is the original's metadata sampled when compression began.
	Source Metadata

	// Verbatim is set when the original already held a gzip stream and was
	// copied rather than compressed.
	Verbatim bool

	// Written is the size of the staged file in bytes.
	Written int64

	// CloneMetadata records whether owner and mode were copied from the
	// original. Replace honours it when it has to copy across filesystems.
	CloneMetadata bool

	// SizeMismatch is set when the name's S= size disagrees with the size
	// of the original on disk.
	SizeMismatch bool
}

// CompressOptions controls how Compressor writes staged files.
type CompressOptions struct {
	// Level is the gzip compression level.
	Level int

	// DetectCompressed copies files that already start with the gzip magic
	// verbatim instead of compressing them a second time.
	DetectCompressed bool

	// CloneMetadata copies owner, group and mode of the original onto the
	// staged file. Timestamps are always copied.
	CloneMetadata bool
}

// DefaultCompressOptions returns the options used by the compactor.
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		Level:            gzip.DefaultCompression,
		DetectCompressed: true,
		CloneMetadata:    true,
	}
}

// Compressor writes compressed copies of candidates into their maildir's tmp/.
// It never modifies the original.
type Compressor struct {
	opts   CompressOptions
	logger *slog.Logger
}

// NewCompressor creates a Compressor. A nil logger discards output.
func NewCompressor(opts CompressOptions, logger *slog.Logger) (*Compressor, error) {
	if opts.Level < gzip.HuffmanOnly || opts.Level > gzip.BestCompression {
		return nil, fmt.Errorf("gzip level %d out of range", opts.Level)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compressor{opts: opts, logger: logger}, nil
}

// Compress stages a compressed copy of c in tmp/ under the compressed name.
// Any existing file at the staged path, typically left by an interrupted
// run, is overwritten. On error the staged file is removed.
func (z *Compressor) Compress(c Candidate) (Job, error) {
	job := Job{
		Original: c.Path,
		Staged:   filepath.Join(c.Maildir.TmpDir(), CompressedName(c.Name)),

		CloneMetadata: z.opts.CloneMetadata,
	}
	z.logger.Info("compressing", slog.String("from", job.Original), slog.String("to", job.Staged))

	src, err := StatMetadata(job.Original)
	if err != nil {
		return Job{}, fmt.Errorf("compress %s: %w", job.Original, err)
	}
	job.Source = src
	if declared := c.Filename().Size; declared >= 0 && declared != src.Size {
		z.logger.Warn("size in filename does not match file size",
			slog.String("path", job.Original),
			slog.Int64("declared", declared),
			slog.Int64("actual", src.Size))
		job.SizeMismatch = true
	}

	if err := z.write(&job); err != nil {
		_ = os.Remove(job.Staged)
		return Job{}, fmt.Errorf("compress %s: %w", job.Original, err)
	}
	if err := applyMetadata(job.Staged, src, z.opts.CloneMetadata); err != nil {
		_ = os.Remove(job.Staged)
		return Job{}, fmt.Errorf("compress %s: %w", job.Original, err)
	}
	return job, nil
}

func (z *Compressor) write(job *Job) error {
	in, err := os.Open(job.Original)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if z.opts.DetectCompressed {
		head := make([]byte, len(gzipMagic))
		n, err := io.ReadFull(in, head)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
		if n == len(gzipMagic) && bytes.Equal(head, gzipMagic) {
			z.logger.Error("file is already a gzip file, not compressing", slog.String("path", job.Original))
			job.Verbatim = true
		}
		if _, err := in.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(job.Staged, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	counter := &countingWriter{w: out}

	if job.Verbatim {
		_, err = io.Copy(counter, in)
	} else {
		err = compressStream(counter, in, z.opts.Level)
	}
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	job.Written = counter.n
	return err
}

func compressStream(w io.Writer, r io.Reader, level int) error {
	gz, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return err
	}
	if _, err := io.Copy(gz, r); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
