package maildir

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func gunzipFile(t *testing.T, path string) []byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = f.Close() }()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	// Reject concatenated members: a double-compressed file would still
	// decode, but to a gzip stream rather than the payload.
	zr.Multistream(false)
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return data
}

func newTestCompressor(t *testing.T, opts CompressOptions) *Compressor {
	t.Helper()
	z, err := NewCompressor(opts, nil)
	if err != nil {
		t.Fatalf("NewCompressor: %v", err)
	}
	return z
}

func TestCompressRoundTrip(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	body := "Subject: Test\r\n\r\n" + strings.Repeat("Test message body\r\n", 200)
	orig := writeMessage(t, md, "msg1,S=3800:2,S", body)

	job, err := newTestCompressor(t, DefaultCompressOptions()).Compress(candidateFor(md, "msg1,S=3800:2,S"))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if job.Original != orig {
		t.Errorf("Original = %s, want %s", job.Original, orig)
	}
	if want := filepath.Join(md.TmpDir(), "msg1,S=3800:2,SZ"); job.Staged != want {
		t.Errorf("Staged = %s, want %s", job.Staged, want)
	}
	if job.Verbatim {
		t.Error("plain message marked verbatim")
	}
	if got := string(gunzipFile(t, job.Staged)); got != body {
		t.Fatal("decompressed content does not match original")
	}
	fi, err := os.Stat(job.Staged)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != job.Written {
		t.Errorf("Written = %d, file is %d bytes", job.Written, fi.Size())
	}

	// Original untouched.
	data, err := os.ReadFile(orig)
	if err != nil || string(data) != body {
		t.Fatalf("original changed: %v", err)
	}
}

func TestCompressPreservesMetadata(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	orig := writeMessage(t, md, "msg1,S=3:2,", "abc")
	before, err := StatMetadata(orig)
	if err != nil {
		t.Fatal(err)
	}

	job, err := newTestCompressor(t, DefaultCompressOptions()).Compress(candidateFor(md, "msg1,S=3:2,"))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	after, err := StatMetadata(job.Staged)
	if err != nil {
		t.Fatal(err)
	}
	if !after.Mtime.Equal(before.Mtime) {
		t.Errorf("mtime = %v, want %v", after.Mtime, before.Mtime)
	}
	if !after.Atime.Equal(before.Atime) {
		t.Errorf("atime = %v, want %v", after.Atime, before.Atime)
	}
	if after.UID != before.UID || after.GID != before.GID {
		t.Errorf("owner = %d:%d, want %d:%d", after.UID, after.GID, before.UID, before.GID)
	}
	if after.Mode != before.Mode {
		t.Errorf("mode = %v, want %v", after.Mode, before.Mode)
	}
	if !job.Source.Mtime.Equal(before.Mtime) {
		t.Errorf("job source mtime = %v, want %v", job.Source.Mtime, before.Mtime)
	}
}

func TestCompressTimestampsOnly(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	orig := writeMessage(t, md, "msg1,S=3:2,", "abc")
	before, err := StatMetadata(orig)
	if err != nil {
		t.Fatal(err)
	}

	opts := DefaultCompressOptions()
	opts.CloneMetadata = false
	job, err := newTestCompressor(t, opts).Compress(candidateFor(md, "msg1,S=3:2,"))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	after, err := StatMetadata(job.Staged)
	if err != nil {
		t.Fatal(err)
	}
	if !after.Mtime.Equal(before.Mtime) {
		t.Errorf("mtime = %v, want %v", after.Mtime, before.Mtime)
	}
	if after.Mode.Perm() != 0o600 {
		t.Errorf("mode = %v, want staging default 0600", after.Mode)
	}
}

func TestCompressAlreadyGzipped(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	payload := "Subject: Already\r\n\r\nalready compressed body"
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(payload)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	name := "msg1,S=40:2,S"
	orig := writeMessage(t, md, name, buf.String())

	job, err := newTestCompressor(t, DefaultCompressOptions()).Compress(candidateFor(md, name))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !job.Verbatim {
		t.Error("expected verbatim copy")
	}
	staged, err := os.ReadFile(job.Staged)
	if err != nil {
		t.Fatal(err)
	}
	original, err := os.ReadFile(orig)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(staged, original) {
		t.Fatal("staged file is not a verbatim copy")
	}
	if got := string(gunzipFile(t, job.Staged)); got != payload {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}

func TestCompressDetectionDisabled(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	name := "msg1,S=3:2,"
	writeMessage(t, md, name, "\x1f\x8b\x08 not really gzip")

	opts := DefaultCompressOptions()
	opts.DetectCompressed = false
	job, err := newTestCompressor(t, opts).Compress(candidateFor(md, name))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if job.Verbatim {
		t.Fatal("detection disabled but job marked verbatim")
	}
	if got := string(gunzipFile(t, job.Staged)); got != "\x1f\x8b\x08 not really gzip" {
		t.Fatalf("decoded %q", got)
	}
}

func TestCompressShortAndEmptyFiles(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	z := newTestCompressor(t, DefaultCompressOptions())
	for _, body := range []string{"", "\x1f", "\x1f\x8b"} {
		name := "short" + string(rune('a'+len(body))) + ",S=0:2,"
		writeMessage(t, md, name, body)
		job, err := z.Compress(candidateFor(md, name))
		if err != nil {
			t.Fatalf("Compress %q: %v", body, err)
		}
		if got := string(gunzipFile(t, job.Staged)); got != body {
			t.Fatalf("decoded %q, want %q", got, body)
		}
	}
}

func TestCompressOverwritesLeftover(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	name := "msg1,S=5:2,"
	writeMessage(t, md, name, "hello")
	leftover := filepath.Join(md.TmpDir(), CompressedName(name))
	if err := os.WriteFile(leftover, []byte(strings.Repeat("junk", 1000)), 0o600); err != nil {
		t.Fatal(err)
	}

	job, err := newTestCompressor(t, DefaultCompressOptions()).Compress(candidateFor(md, name))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got := string(gunzipFile(t, job.Staged)); got != "hello" {
		t.Fatalf("decoded %q", got)
	}
}

func TestCompressSizeMismatch(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	writeMessage(t, md, "ok,S=5:2,", "hello")
	writeMessage(t, md, "off,S=999:2,", "hello")
	writeMessage(t, md, "nosize:2,", "hello")
	z := newTestCompressor(t, DefaultCompressOptions())

	tests := []struct {
		name string
		want bool
	}{
		{"ok,S=5:2,", false},
		{"off,S=999:2,", true},
		{"nosize:2,", false},
	}
	for _, tt := range tests {
		job, err := z.Compress(candidateFor(md, tt.name))
		if err != nil {
			t.Fatalf("Compress %s: %v", tt.name, err)
		}
		if job.SizeMismatch != tt.want {
			t.Errorf("%s: SizeMismatch = %v, want %v", tt.name, job.SizeMismatch, tt.want)
		}
	}
}

func TestCompressMissingSource(t *testing.T) {
	md := newTestMaildir(t, t.TempDir(), "m")
	name := "gone,S=1:2,"
	_, err := newTestCompressor(t, DefaultCompressOptions()).Compress(candidateFor(md, name))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(md.TmpDir(), CompressedName(name))); !os.IsNotExist(err) {
		t.Fatal("staged file left behind")
	}
}

func TestNewCompressorRejectsBadLevel(t *testing.T) {
	opts := DefaultCompressOptions()
	opts.Level = 42
	if _, err := NewCompressor(opts, nil); err == nil {
		t.Fatal("expected error")
	}
}
