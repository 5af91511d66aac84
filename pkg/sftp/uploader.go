package sftp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"github.com/hopsync/hopsync/pkg/normalize"
)

// FileStore is the subset of remote operations the upload engine needs.
// It is satisfied by *Client and by in-memory fakes in tests.
type FileStore interface {
	Mkdir(path string) error
	PutFile(ctx context.Context, localPath, remotePath string, onProgress ProgressFunc) error
	PutBytes(ctx context.Context, data []byte, remotePath string) error
}

// Result accumulates per-tree upload counts. A directory's result is the
// sum of its children's results plus its own traversal errors.
type Result struct {
	Uploaded  int
	Converted int
	Failed    int
}

// Add combines two results
func (r Result) Add(o Result) Result {
	return Result{
		Uploaded:  r.Uploaded + o.Uploaded,
		Converted: r.Converted + o.Converted,
		Failed:    r.Failed + o.Failed,
	}
}

// Complete reports whether every entry in the tree transferred
func (r Result) Complete() bool {
	return r.Failed == 0
}

func (r Result) String() string {
	return fmt.Sprintf("uploaded %d, converted %d, failed %d", r.Uploaded, r.Converted, r.Failed)
}

// EventKind describes a single step of an upload for progress reporting
type EventKind int

const (
	EventUploading EventKind = iota
	EventUploaded
	EventConverted
	EventDirCreated
	EventFailed
)

// Event is one progress notification from the engine
type Event struct {
	Kind EventKind
	Path string // path relative to the upload root
	Err  error  // set for EventFailed
}

// Engine mirrors a local directory tree onto the target host, converting
// line endings of eligible text files in flight. Transfers are sequential;
// one bad file never aborts the rest of the tree.
type Engine struct {
	store   FileStore
	convert bool
	onEvent func(Event)
}

// NewEngine creates an upload engine. When convert is false every file is
// uploaded verbatim. onEvent may be nil.
func NewEngine(store FileStore, convert bool, onEvent func(Event)) *Engine {
	return &Engine{
		store:   store,
		convert: convert,
		onEvent: onEvent,
	}
}

func (e *Engine) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}

// Upload mirrors localRoot into remoteRoot/basename(localRoot). It returns
// the accumulated counts; the error is non-nil only when the target
// directory could not be created or the upload was cancelled.
func (e *Engine) Upload(ctx context.Context, localRoot, remoteRoot string) (Result, error) {
	targetDir := path.Join(remoteRoot, filepath.Base(filepath.Clean(localRoot)))

	if err := e.store.Mkdir(targetDir); err != nil {
		return Result{}, fmt.Errorf("failed to create target directory %s: %w", targetDir, err)
	}
	e.emit(Event{Kind: EventDirCreated, Path: targetDir})
	log.Printf("[INFO] Uploading %s -> %s", localRoot, targetDir)

	result := e.uploadDir(ctx, localRoot, targetDir, "")
	if err := ctx.Err(); err != nil {
		return result, err
	}

	log.Printf("[INFO] Upload finished: %s", result)
	return result, nil
}

// uploadDir transfers one directory level and recurses depth-first.
// os.ReadDir returns entries sorted by name, which keeps traversal order
// deterministic across runs.
func (e *Engine) uploadDir(ctx context.Context, localDir, remoteDir, relDir string) Result {
	var result Result

	entries, err := os.ReadDir(localDir)
	if err != nil {
		result.Failed++
		e.emit(Event{Kind: EventFailed, Path: relDir, Err: fmt.Errorf("failed to read directory: %w", err)})
		log.Printf("[ERROR] Failed to read directory %s: %v", localDir, err)
		return result
	}

	for _, entry := range entries {
		// Cancellation is cooperative: checked between entries, never
		// mid-transfer of a single file.
		if ctx.Err() != nil {
			return result
		}

		localPath := filepath.Join(localDir, entry.Name())
		remotePath := path.Join(remoteDir, entry.Name())
		relPath := path.Join(relDir, entry.Name())

		if entry.IsDir() {
			if err := e.store.Mkdir(remotePath); err != nil {
				result.Failed++
				e.emit(Event{Kind: EventFailed, Path: relPath, Err: err})
				log.Printf("[ERROR] Failed to create %s: %v", remotePath, err)
				continue
			}
			e.emit(Event{Kind: EventDirCreated, Path: relPath})
			result = result.Add(e.uploadDir(ctx, localPath, remotePath, relPath))
			continue
		}

		result = result.Add(e.uploadFile(ctx, localPath, remotePath, relPath))
	}

	return result
}

// uploadFile transfers one regular file, converting line endings when the
// file classifies as text and conversion is enabled
func (e *Engine) uploadFile(ctx context.Context, localPath, remotePath, relPath string) Result {
	e.emit(Event{Kind: EventUploading, Path: relPath})

	if e.convert && normalize.Classify(localPath) == normalize.Text {
		data, err := os.ReadFile(localPath)
		if err != nil {
			log.Printf("[ERROR] Failed to read %s: %v", localPath, err)
			e.emit(Event{Kind: EventFailed, Path: relPath, Err: err})
			return Result{Failed: 1}
		}

		converted, replacements, err := normalize.Normalize(data)
		if err == nil {
			if putErr := e.store.PutBytes(ctx, converted, remotePath); putErr != nil {
				log.Printf("[ERROR] Failed to upload %s: %v", relPath, putErr)
				e.emit(Event{Kind: EventFailed, Path: relPath, Err: putErr})
				return Result{Failed: 1}
			}
			if replacements > 0 {
				log.Printf("[INFO] Converted %s (%d line endings)", relPath, replacements)
			}
			e.emit(Event{Kind: EventConverted, Path: relPath})
			return Result{Uploaded: 1, Converted: 1}
		}
		// Not decodable after all: fall through and upload the original
		// bytes unmodified.
		log.Printf("[WARN] %s classified text but not decodable, uploading verbatim", relPath)
	}

	if err := e.store.PutFile(ctx, localPath, remotePath, nil); err != nil {
		log.Printf("[ERROR] Failed to upload %s: %v", relPath, err)
		e.emit(Event{Kind: EventFailed, Path: relPath, Err: err})
		return Result{Failed: 1}
	}
	e.emit(Event{Kind: EventUploaded, Path: relPath})
	return Result{Uploaded: 1}
}
