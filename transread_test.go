package transread

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/discochess/transread/internal/codec"
	"github.com/discochess/transread/internal/codec/bzip2codec"
	"github.com/discochess/transread/internal/codec/gzipcodec"
	"github.com/discochess/transread/internal/localcache"
	"github.com/discochess/transread/internal/stats"
	"github.com/discochess/transread/internal/stats/logger"
)

func compress(t *testing.T, c codec.Codec, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := c.Writer(&buf)
	if err != nil {
		t.Fatalf("Writer() error = %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func tarGz(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	if _, err := tw.Write(data); err != nil {
		t.Fatalf("tar Write() error = %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close() error = %v", err)
	}
	return compress(t, gzipcodec.New(), buf.Bytes())
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustOpen(t *testing.T, name string, opts ...Option) *Reader {
	t.Helper()
	r, err := Open(context.Background(), name, opts...)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", name, err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func readN(t *testing.T, r *Reader, n int) string {
	t.Helper()
	b, err := r.ReadN(n)
	if err != nil {
		t.Fatalf("ReadN(%d) error = %v", n, err)
	}
	return string(b)
}

func TestReader_LocalPlainFile(t *testing.T) {
	r := mustOpen(t, writeFile(t, "data.bin", []byte("0123456789")))

	if r.Size() != 10 || r.Compressed() || r.Remote() || r.Format() != FormatPlain {
		t.Errorf("reader = {size=%d compressed=%v remote=%v format=%v}", r.Size(), r.Compressed(), r.Remote(), r.Format())
	}
	if got := readN(t, r, 5); got != "01234" {
		t.Errorf("ReadN(5) = %q, want 01234", got)
	}

	pos, err := r.Seek(2, io.SeekStart)
	if err != nil || pos != 2 {
		t.Fatalf("Seek(2) = %d, %v; want 2", pos, err)
	}
	if tell, _ := r.Tell(); tell != 2 {
		t.Errorf("Tell() = %d, want 2", tell)
	}
	if got := readN(t, r, 100); got != "23456789" {
		t.Errorf("ReadN(100) = %q, want 23456789", got)
	}
	if got := readN(t, r, 1); got != "" {
		t.Errorf("ReadN(1) at end = %q, want empty", got)
	}

	f, err := r.File()
	if err != nil || f == nil {
		t.Errorf("File() = %v, %v; want the local file", f, err)
	}
}

func TestReader_SeekPastEnd(t *testing.T) {
	content := []byte("0123456789")

	native := mustOpen(t, writeFile(t, "ten.bin", content))
	if pos, err := native.Seek(50, io.SeekStart); err != nil || pos != 50 {
		t.Errorf("native Seek(50) = %d, %v; want 50", pos, err)
	}
	if native.Size() != 10 {
		t.Errorf("native Size() = %d, want 10", native.Size())
	}

	emulated := mustOpen(t, writeFile(t, "ten.bin.gz", compress(t, gzipcodec.New(), content)))
	if pos, err := emulated.Seek(50, io.SeekStart); err != nil || pos != 10 {
		t.Errorf("emulated Seek(50) = %d, %v; want 10", pos, err)
	}
}

func TestReader_GzipHelloWorld(t *testing.T) {
	r := mustOpen(t, writeFile(t, "hello.gz", compress(t, gzipcodec.New(), []byte("hello world"))))

	if !r.Compressed() || r.Size() != SizeUnknown || r.Format() != FormatGzip {
		t.Errorf("reader = {compressed=%v size=%d format=%v}", r.Compressed(), r.Size(), r.Format())
	}
	if got := readN(t, r, 11); got != "hello world" {
		t.Errorf("ReadN(11) = %q", got)
	}
	if got := readN(t, r, 11); got != "" {
		t.Errorf("ReadN after end = %q, want empty", got)
	}
}

func TestReader_GzipZeroPadding(t *testing.T) {
	padded := append(compress(t, gzipcodec.New(), []byte("hello world")), make([]byte, 512)...)
	path := writeFile(t, "padded.img.gz", padded)

	r := mustOpen(t, path)
	if got := readN(t, r, ReadAll); got != "hello world" {
		t.Errorf("ReadN(ReadAll) = %q, want hello world", got)
	}

	m := mustOpen(t, path, WithTempDir(t.TempDir()))
	if err := m.MaterializeLocal(); err != nil {
		t.Fatalf("MaterializeLocal() error = %v", err)
	}
	if m.Size() != 11 {
		t.Errorf("Size() after MaterializeLocal = %d, want 11", m.Size())
	}
}

func TestReader_EmptyCompressedFile(t *testing.T) {
	for _, name := range []string{"empty.gz", "empty.bz2", "empty.zst", "empty.xz"} {
		t.Run(name, func(t *testing.T) {
			r := mustOpen(t, writeFile(t, name, nil))
			if got := readN(t, r, ReadAll); got != "" {
				t.Errorf("ReadN(ReadAll) = %q, want empty", got)
			}
			if r.Size() != 0 {
				t.Errorf("Size() = %d, want 0", r.Size())
			}
		})
	}
}

func TestReader_TarGzFirstMember(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10)
	r := mustOpen(t, writeFile(t, "archive.tar.gz", tarGz(t, "data.bin", data)))

	if r.Size() != 100 {
		t.Errorf("Size() = %d, want 100", r.Size())
	}
	if got := readN(t, r, 100); got != string(data) {
		t.Errorf("ReadN(100) returned %d bytes differing from the member", len(got))
	}
	if got := readN(t, r, 1); got != "" {
		t.Errorf("101st byte = %q, want empty", got)
	}
}

func TestReader_SSHConnectError(t *testing.T) {
	run := &fakeRunner{codes: map[string]int{"true": 255}}
	_, err := Open(context.Background(), "ssh://unreachable.invalid/img.gz", WithRunner(run))
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("Open() error = %v, want ErrConnect", err)
	}
	var ce *ConnectError
	if !errors.As(err, &ce) || ce.ExitCode != 255 {
		t.Fatalf("error = %#v, want *ConnectError with code 255", err)
	}
	if !strings.Contains(err.Error(), "ssh error") {
		t.Errorf("error %q does not contain %q", err, "ssh error")
	}
}

func TestReader_SSHStream(t *testing.T) {
	plain := []byte(strings.Repeat("remote block ", 1000))
	run := &fakeRunner{output: compress(t, bzip2codec.New(), plain)}
	r := mustOpen(t, "ssh://host/disk.img.bz2", WithRunner(run))

	if !r.Remote() || !r.Compressed() || r.Format() != FormatBzip2 {
		t.Errorf("reader = {remote=%v compressed=%v format=%v}", r.Remote(), r.Compressed(), r.Format())
	}
	if _, err := r.File(); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("File() error = %v, want ErrUnsupportedOperation", err)
	}
	if pos, err := r.Seek(13, io.SeekStart); err != nil || pos != 13 {
		t.Fatalf("Seek(13) = %d, %v", pos, err)
	}
	if got := readN(t, r, 12); got != "remote block" {
		t.Errorf("ReadN(12) after seek = %q", got)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if strings.Join(run.events, ",") != "close,wait" {
		t.Errorf("release events = %v, want [close wait]", run.events)
	}
}

func TestReader_MaterializeRemoteCompressed(t *testing.T) {
	plain := bytes.Repeat([]byte("abcdefghij"), 5000)
	body := compress(t, gzipcodec.New(), plain)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	r := mustOpen(t, srv.URL+"/blob.gz", WithTempDir(dir))

	if !r.Remote() || !r.Compressed() {
		t.Fatalf("reader before materialize = {remote=%v compressed=%v}", r.Remote(), r.Compressed())
	}
	if _, err := r.Seek(0, io.SeekEnd); !errors.Is(err, ErrInvalidSeekMode) {
		t.Errorf("Seek(SeekEnd) before materialize error = %v, want ErrInvalidSeekMode", err)
	}

	if err := r.MaterializeLocal(); err != nil {
		t.Fatalf("MaterializeLocal() error = %v", err)
	}
	if r.Remote() || r.Compressed() || r.Size() != int64(len(plain)) {
		t.Errorf("reader after materialize = {remote=%v compressed=%v size=%d}", r.Remote(), r.Compressed(), r.Size())
	}

	all, err := r.ReadN(ReadAll)
	if err != nil || !bytes.Equal(all, plain) {
		t.Fatalf("ReadN(ReadAll) = %d bytes, %v; want the full plaintext", len(all), err)
	}

	// Native seeking now works in every direction.
	if pos, err := r.Seek(-10, io.SeekEnd); err != nil || pos != int64(len(plain)-10) {
		t.Fatalf("Seek(-10, SeekEnd) = %d, %v", pos, err)
	}
	if pos, err := r.Seek(5, io.SeekStart); err != nil || pos != 5 {
		t.Fatalf("backward Seek(5) = %d, %v", pos, err)
	}
	if got := readN(t, r, 5); got != "fghij" {
		t.Errorf("ReadN(5) after native seek = %q", got)
	}
	if _, err := r.File(); err != nil {
		t.Errorf("File() after materialize error = %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temp dir holds %d entries, want the local copy", len(entries))
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("Close() left %d files in the temp dir", len(entries))
	}
}

func TestReader_MaterializeCopiesRemainder(t *testing.T) {
	r := mustOpen(t, writeFile(t, "x.gz", compress(t, gzipcodec.New(), []byte("0123456789"))), WithTempDir(t.TempDir()))

	readN(t, r, 4)
	if err := r.MaterializeLocal(); err != nil {
		t.Fatalf("MaterializeLocal() error = %v", err)
	}
	if tell, _ := r.Tell(); tell != 0 {
		t.Errorf("Tell() = %d, want 0", tell)
	}
	if r.Size() != 6 {
		t.Errorf("Size() = %d, want 6", r.Size())
	}
	if got := readN(t, r, ReadAll); got != "456789" {
		t.Errorf("content = %q, want 456789", got)
	}
	if err := r.MaterializeLocal(); err != nil {
		t.Errorf("second MaterializeLocal() error = %v", err)
	}
}

func TestOpen_WithLocalCopy(t *testing.T) {
	r := mustOpen(t, writeFile(t, "y.bz2", compress(t, bzip2codec.New(), []byte("payload"))),
		WithLocalCopy(), WithTempDir(t.TempDir()))

	if r.Compressed() || r.Size() != 7 || r.Format() != FormatBzip2 {
		t.Errorf("reader = {compressed=%v size=%d format=%v}", r.Compressed(), r.Size(), r.Format())
	}
	if got := readN(t, r, ReadAll); got != "payload" {
		t.Errorf("content = %q", got)
	}
}

func TestOpener_LocalCacheReuse(t *testing.T) {
	var requests atomic.Int32
	body := compress(t, gzipcodec.New(), []byte("cached content"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.Write(body)
	}))
	defer srv.Close()

	cache, err := localcache.New(4)
	if err != nil {
		t.Fatalf("localcache.New() error = %v", err)
	}
	defer cache.Close()

	o := NewOpener(WithLocalCopy(), WithLocalCache(cache), WithTempDir(t.TempDir()))
	defer o.Close()

	for i := 0; i < 3; i++ {
		r, err := o.Open(context.Background(), srv.URL+"/c.gz")
		if err != nil {
			t.Fatalf("Open() #%d error = %v", i, err)
		}
		if got := readN(t, r, ReadAll); got != "cached content" {
			t.Errorf("Open() #%d content = %q", i, got)
		}
		if err := r.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	if n := requests.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
	if s := cache.Stats(); s.Hits != 2 || s.Misses != 1 {
		t.Errorf("cache stats = %+v, want 2 hits and 1 miss", s)
	}
}

func TestReader_BackwardSeekRejected(t *testing.T) {
	r := mustOpen(t, writeFile(t, "z.gz", compress(t, gzipcodec.New(), []byte("0123456789"))))

	readN(t, r, 6)
	if _, err := r.Seek(5, io.SeekStart); !errors.Is(err, ErrBackwardSeek) {
		t.Errorf("Seek(5) error = %v, want ErrBackwardSeek", err)
	}
	if _, err := r.Seek(-1, io.SeekCurrent); !errors.Is(err, ErrBackwardSeek) {
		t.Errorf("Seek(-1, SeekCurrent) error = %v, want ErrBackwardSeek", err)
	}
	if tell, _ := r.Tell(); tell != 6 {
		t.Errorf("Tell() = %d, want 6", tell)
	}
	if got := readN(t, r, 4); got != "6789" {
		t.Errorf("ReadN(4) = %q, want 6789", got)
	}
}

func TestReader_ForwardSeekMatchesDiscardingRead(t *testing.T) {
	plain := bytes.Repeat([]byte("the quick brown fox "), 200)
	path := writeFile(t, "fox.gz", compress(t, gzipcodec.New(), plain))
	l := len(plain)

	for _, k := range []int{0, 1, 19, 20, 2000, l - 1, l} {
		r := mustOpen(t, path, WithChunkSize(64))
		if pos, err := r.Seek(int64(k), io.SeekStart); err != nil || pos != int64(k) {
			t.Fatalf("Seek(%d) = %d, %v", k, pos, err)
		}
		if got := readN(t, r, l-k); got != string(plain[k:]) {
			t.Errorf("content after Seek(%d) differs from the discarded read", k)
		}
		r.Close()
	}
}

func TestReader_ReadInterface(t *testing.T) {
	r := mustOpen(t, writeFile(t, "io.gz", compress(t, gzipcodec.New(), []byte("via io.Reader"))))

	got, err := io.ReadAll(r)
	if err != nil || string(got) != "via io.Reader" {
		t.Errorf("io.ReadAll() = %q, %v", got, err)
	}
	if n, err := r.Read(make([]byte, 8)); n != 0 || err != io.EOF {
		t.Errorf("Read after end = %d, %v; want 0, io.EOF", n, err)
	}
	if tell, _ := r.Tell(); tell != int64(len("via io.Reader")) {
		t.Errorf("Tell() = %d", tell)
	}
}

func TestReader_CloseIdempotent(t *testing.T) {
	r, err := Open(context.Background(), writeFile(t, "c.gz", compress(t, gzipcodec.New(), []byte("x"))))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := r.ReadN(1); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadN after Close error = %v, want ErrClosed", err)
	}
	if _, err := r.Seek(0, io.SeekCurrent); !errors.Is(err, ErrClosed) {
		t.Errorf("Seek after Close error = %v, want ErrClosed", err)
	}
	if _, err := r.Tell(); !errors.Is(err, ErrClosed) {
		t.Errorf("Tell after Close error = %v, want ErrClosed", err)
	}
	if err := r.MaterializeLocal(); !errors.Is(err, ErrClosed) {
		t.Errorf("MaterializeLocal after Close error = %v, want ErrClosed", err)
	}
}

func TestReader_FileUnsupportedWhenCompressed(t *testing.T) {
	r := mustOpen(t, writeFile(t, "f.gz", compress(t, gzipcodec.New(), []byte("x"))))
	if _, err := r.File(); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("File() error = %v, want ErrUnsupportedOperation", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"corrupt gzip", writeFile(t, "bad.gz", []byte("not gzip")), ErrCorruptArchive},
		{"corrupt tar", writeFile(t, "bad.tar.gz", compress(t, gzipcodec.New(), []byte("no tar"))), ErrCorruptArchive},
		{"directory", dir, ErrResourceOpen},
		{"missing", filepath.Join(dir, "missing.bin"), ErrRemoteOpen},
		{"unknown scheme", "ftp://host/file", ErrRemoteOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestOpen_CorruptArchiveReleasesChild(t *testing.T) {
	run := &fakeRunner{output: []byte("definitely not bzip2")}
	_, err := Open(context.Background(), "ssh://host/img.bz2", WithRunner(run))
	if !errors.Is(err, ErrCorruptArchive) {
		t.Fatalf("Open() error = %v, want ErrCorruptArchive", err)
	}
	if strings.Join(run.events, ",") != "close,wait" {
		t.Errorf("release events = %v, want the pipe closed and the child reaped", run.events)
	}
}

func TestOpener_Metrics(t *testing.T) {
	collector := logger.New(zap.NewNop())
	o := NewOpener(WithStats(collector))
	defer o.Close()

	path := writeFile(t, "m.gz", compress(t, gzipcodec.New(), []byte("0123456789")))
	r, err := o.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	r.Seek(3, io.SeekStart)
	readN(t, r, ReadAll)
	r.Close()

	o.Open(context.Background(), "ftp://nowhere/x")

	for metric, want := range map[string]int64{
		stats.MetricOpens:            2,
		stats.MetricOpenErrors:       1,
		stats.MetricSeekSkippedBytes: 3,
		stats.MetricBytesRead:        7,
	} {
		if got := collector.Total(metric); got != want {
			t.Errorf("%s = %d, want %d", metric, got, want)
		}
	}
}

func TestOpener_ClosedRejectsOpen(t *testing.T) {
	o := NewOpener()
	if err := o.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := o.Open(context.Background(), "anything"); !errors.Is(err, ErrClosed) {
		t.Errorf("Open() after Close error = %v, want ErrClosed", err)
	}
}

func TestSupportedCompressionTypes(t *testing.T) {
	for _, want := range []string{"tar.gz", "tar.bz2", "tgz", "gz", "bz2"} {
		found := false
		for _, got := range SupportedCompressionTypes {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Errorf("SupportedCompressionTypes lacks %q", want)
		}
	}
}

// fakeRunner stands in for ssh: probes exit with scripted codes keyed by
// the remote command, and cat streams output.
type fakeRunner struct {
	codes  map[string]int
	output []byte
	events []string
}

func (f *fakeRunner) LookPath(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func (f *fakeRunner) Run(_ context.Context, c Command) (int, []byte, error) {
	return f.codes[c.Args[len(c.Args)-1]], nil, nil
}

func (f *fakeRunner) Start(c Command) (io.ReadCloser, func() error, error) {
	pipe := &fakePipe{Reader: bytes.NewReader(f.output), events: &f.events}
	return pipe, func() error {
		f.events = append(f.events, "wait")
		return nil
	}, nil
}

type fakePipe struct {
	io.Reader
	events *[]string
}

func (p *fakePipe) Close() error {
	*p.events = append(*p.events, "close")
	return nil
}
