package sftp

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeStore is an in-memory FileStore for engine tests
type fakeStore struct {
	files    map[string][]byte
	dirs     map[string]int // path -> times Mkdir was called
	failPut  map[string]error
	failsDir map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:    make(map[string][]byte),
		dirs:     make(map[string]int),
		failPut:  make(map[string]error),
		failsDir: make(map[string]error),
	}
}

func (f *fakeStore) Mkdir(path string) error {
	if err, ok := f.failsDir[path]; ok {
		return err
	}
	// Creating an existing directory is success by contract; count the
	// calls so tests can assert idempotence.
	f.dirs[path]++
	return nil
}

func (f *fakeStore) PutFile(ctx context.Context, localPath, remotePath string, onProgress ProgressFunc) error {
	if err, ok := f.failPut[remotePath]; ok {
		return err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	f.files[remotePath] = data
	return nil
}

func (f *fakeStore) PutBytes(ctx context.Context, data []byte, remotePath string) error {
	if err, ok := f.failPut[remotePath]; ok {
		return err
	}
	f.files[remotePath] = append([]byte(nil), data...)
	return nil
}

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, content, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestUpload_TextAndBinary(t *testing.T) {
	src := filepath.Join(t.TempDir(), "payload")
	binContent := []byte{0x42, 0x00, 0x0d, 0x0a, 0xff}
	writeTree(t, src, map[string][]byte{
		"a.txt": []byte("line1\r\nline2\r\n"),
		"b.bin": binContent,
	})

	store := newFakeStore()
	engine := NewEngine(store, true, nil)

	result, err := engine.Upload(context.Background(), src, "/tmp/dst")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := Result{Uploaded: 2, Converted: 1, Failed: 0}
	if result != want {
		t.Errorf("Expected %+v, got %+v", want, result)
	}

	if got := store.files["/tmp/dst/payload/a.txt"]; string(got) != "line1\nline2\n" {
		t.Errorf("Text file not converted, got %q", got)
	}
	if got := store.files["/tmp/dst/payload/b.bin"]; !bytes.Equal(got, binContent) {
		t.Errorf("Binary file not byte-identical, got %v", got)
	}
	if store.dirs["/tmp/dst/payload"] != 1 {
		t.Error("Target directory was not created")
	}
}

func TestUpload_ConvertDisabled(t *testing.T) {
	src := filepath.Join(t.TempDir(), "raw")
	content := []byte("keep\r\nendings\r\n")
	writeTree(t, src, map[string][]byte{"a.txt": content})

	store := newFakeStore()
	engine := NewEngine(store, false, nil)

	result, err := engine.Upload(context.Background(), src, "/dst")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.Converted != 0 {
		t.Errorf("Expected no conversions, got %d", result.Converted)
	}
	if got := store.files["/dst/raw/a.txt"]; !bytes.Equal(got, content) {
		t.Errorf("Content changed with conversion disabled: %q", got)
	}
}

func TestUpload_NestedDirectories(t *testing.T) {
	src := filepath.Join(t.TempDir(), "tree")
	writeTree(t, src, map[string][]byte{
		"top.txt":              []byte("a\r\n"),
		"sub/mid.txt":          []byte("b\r\n"),
		"sub/deeper/leaf.conf": []byte("c\r\n"),
		"sub/deeper/data.bin":  {0x00, 0x01},
	})

	store := newFakeStore()
	engine := NewEngine(store, true, nil)

	result, err := engine.Upload(context.Background(), src, "/dst")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := Result{Uploaded: 4, Converted: 3, Failed: 0}
	if result != want {
		t.Errorf("Expected %+v, got %+v", want, result)
	}
	for _, dir := range []string{"/dst/tree", "/dst/tree/sub", "/dst/tree/sub/deeper"} {
		if store.dirs[dir] != 1 {
			t.Errorf("Directory %s not created exactly once", dir)
		}
	}
}

func TestUpload_PerEntryFailureContinues(t *testing.T) {
	src := filepath.Join(t.TempDir(), "mixed")
	writeTree(t, src, map[string][]byte{
		"bad.bin":  {0x00},
		"good.bin": {0x01},
	})

	store := newFakeStore()
	store.failPut["/dst/mixed/bad.bin"] = errors.New("connection reset")
	engine := NewEngine(store, true, nil)

	result, err := engine.Upload(context.Background(), src, "/dst")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if result.Failed != 1 || result.Uploaded != 1 {
		t.Errorf("Expected one failure and one upload, got %+v", result)
	}
	if result.Complete() {
		t.Error("Result with failures must not report complete")
	}
	if _, ok := store.files["/dst/mixed/good.bin"]; !ok {
		t.Error("Sibling upload aborted by earlier failure")
	}
}

func TestUpload_SubdirMkdirFailureSkipsSubtree(t *testing.T) {
	src := filepath.Join(t.TempDir(), "root")
	writeTree(t, src, map[string][]byte{
		"ok.bin":       {0x01},
		"blocked/x.sh": []byte("echo\r\n"),
	})

	store := newFakeStore()
	store.failsDir["/dst/root/blocked"] = errors.New("permission denied")
	engine := NewEngine(store, true, nil)

	result, err := engine.Upload(context.Background(), src, "/dst")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if result.Failed != 1 {
		t.Errorf("Expected exactly one failed entry for the directory, got %+v", result)
	}
	if result.Uploaded != 1 {
		t.Errorf("Expected sibling file uploaded, got %+v", result)
	}
	if _, ok := store.files["/dst/root/blocked/x.sh"]; ok {
		t.Error("Subtree under failed mkdir must not be uploaded")
	}
}

func TestUpload_TargetMkdirFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "x")
	writeTree(t, src, map[string][]byte{"f.txt": []byte("hi")})

	store := newFakeStore()
	store.failsDir["/dst/x"] = errors.New("read-only file system")
	engine := NewEngine(store, true, nil)

	if _, err := engine.Upload(context.Background(), src, "/dst"); err == nil {
		t.Error("Expected error when target directory cannot be created")
	}
}

func TestUpload_UndecodableTextFallsBack(t *testing.T) {
	src := filepath.Join(t.TempDir(), "enc")
	// .txt extension, no NUL byte, but neither UTF-8 nor Windows-1252.
	content := []byte("weird \x81\x8d bytes\r\n")
	writeTree(t, src, map[string][]byte{"odd.txt": content})

	store := newFakeStore()
	engine := NewEngine(store, true, nil)

	result, err := engine.Upload(context.Background(), src, "/dst")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	want := Result{Uploaded: 1, Converted: 0, Failed: 0}
	if result != want {
		t.Errorf("Expected fallback upload without conversion, got %+v", result)
	}
	if got := store.files["/dst/enc/odd.txt"]; !bytes.Equal(got, content) {
		t.Errorf("Fallback upload must be byte-identical, got %q", got)
	}
}

func TestUpload_Cancellation(t *testing.T) {
	src := filepath.Join(t.TempDir(), "big")
	writeTree(t, src, map[string][]byte{
		"a.bin": {0x01},
		"b.bin": {0x02},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	engine := NewEngine(store, true, nil)

	result, err := engine.Upload(ctx, src, "/dst")
	if err == nil {
		t.Error("Expected cancellation error")
	}
	if result.Uploaded != 0 {
		t.Errorf("Expected no uploads after cancellation, got %+v", result)
	}
}

func TestUpload_Events(t *testing.T) {
	src := filepath.Join(t.TempDir(), "ev")
	writeTree(t, src, map[string][]byte{"a.txt": []byte("x\r\n")})

	var events []Event
	store := newFakeStore()
	engine := NewEngine(store, true, func(ev Event) {
		events = append(events, ev)
	})

	if _, err := engine.Upload(context.Background(), src, "/dst"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	var sawConverted bool
	for _, ev := range events {
		if ev.Kind == EventConverted && ev.Path == "a.txt" {
			sawConverted = true
		}
	}
	if !sawConverted {
		t.Errorf("Expected a converted event for a.txt, events: %+v", events)
	}
}

func TestResult_Add(t *testing.T) {
	a := Result{Uploaded: 2, Converted: 1, Failed: 0}
	b := Result{Uploaded: 1, Converted: 0, Failed: 3}

	sum := a.Add(b)
	if sum != (Result{Uploaded: 3, Converted: 1, Failed: 3}) {
		t.Errorf("Unexpected sum: %+v", sum)
	}
}
