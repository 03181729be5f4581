package indexer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
	"go.etcd.io/bbolt"
)

var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"coverage":     true,
	".git":         true,
	".github":      true,
	".idea":        true,
	".vscode":      true,
}

var fileStateBucket = []byte("file_states")

// ScannerOptions configures which files are indexed and how
type ScannerOptions struct {
	// Extensions lists the lower case file extensions to index, dot included
	Extensions []string
	// Workers bounds how many files are handed to the tree provider at once
	Workers int
	// Debounce is the quiet period before watcher events are processed
	Debounce time.Duration
}

// FileScanner scans the project for files and tracks changes
type FileScanner struct {
	projectRoot string
	db          *bbolt.DB
	trees       TreeProvider
	options     ScannerOptions
	gitignore   *ignore.GitIgnore
	indexerMu   sync.RWMutex
	indexer     []Indexer
	watcher     *fsnotify.Watcher
	watcherCtx  context.Context
	cancel      context.CancelFunc
	watcherWg   sync.WaitGroup
}

// NewFileScanner creates a new file scanner. File states are kept in a bbolt
// database at dbPath.
func NewFileScanner(projectRoot string, dbPath string, trees TreeProvider, options ScannerOptions) (*FileScanner, error) {
	if len(options.Extensions) == 0 {
		options.Extensions = []string{".noo"}
	}
	if options.Workers <= 0 {
		options.Workers = 4
	}
	if options.Debounce <= 0 {
		options.Debounce = 200 * time.Millisecond
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout:      time.Second,
		NoSync:       true,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(fileStateBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	gitignore, err := ignore.CompileIgnoreFile(filepath.Join(projectRoot, ".gitignore"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error reading .gitignore: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FileScanner{
		projectRoot: projectRoot,
		db:          db,
		trees:       trees,
		options:     options,
		gitignore:   gitignore,
		watcherCtx:  ctx,
		cancel:      cancel,
	}, nil
}

func (fs *FileScanner) AddIndexer(indexer Indexer) {
	fs.indexerMu.Lock()
	defer fs.indexerMu.Unlock()
	fs.indexer = append(fs.indexer, indexer)
}

func (fs *FileScanner) indexers() []Indexer {
	fs.indexerMu.RLock()
	defer fs.indexerMu.RUnlock()
	return slices.Clone(fs.indexer)
}

// isSourceFile reports whether path has one of the indexed extensions
func (fs *FileScanner) isSourceFile(path string) bool {
	return slices.Contains(fs.options.Extensions, strings.ToLower(filepath.Ext(path)))
}

// isIgnored reports whether path lies in a skipped directory or matches the
// project .gitignore. Paths outside the project root are ignored.
func (fs *FileScanner) isIgnored(path string, isDir bool) bool {
	relPath, err := filepath.Rel(fs.projectRoot, path)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(os.PathSeparator)) {
		return true
	}
	if relPath == "." {
		return false
	}

	for _, part := range strings.Split(relPath, string(os.PathSeparator)) {
		if defaultSkipDirs[part] {
			return true
		}
	}

	if fs.gitignore == nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)
	if isDir {
		relPath += "/"
	}
	return fs.gitignore.MatchesPath(relPath)
}

// StartWatcher starts watching for file changes in the project directory
func (fs *FileScanner) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	fs.watcher = watcher
	fs.watcherWg.Add(1)

	go fs.watch()

	return fs.addDirectoryToWatcher(fs.projectRoot)
}

func (fs *FileScanner) watch() {
	defer fs.watcherWg.Done()
	defer func() { _ = fs.watcher.Close() }()

	pendingAdds := make(map[string]bool)
	pendingRemoves := make(map[string]bool)
	debounceTimer := time.NewTimer(time.Hour)
	debounceTimer.Stop()

	resetTimer := func() {
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		debounceTimer.Reset(fs.options.Debounce)
	}

	processChanges := func() {
		if len(pendingAdds) > 0 {
			files := mapKeys(pendingAdds)
			clear(pendingAdds)

			log.Printf("Processing %d changed/added files", len(files))
			if err := fs.IndexFiles(fs.watcherCtx, files); err != nil {
				log.Printf("Error indexing files: %v", err)
			}
		}

		if len(pendingRemoves) > 0 {
			files := mapKeys(pendingRemoves)
			clear(pendingRemoves)

			log.Printf("Processing %d deleted files", len(files))
			// removal must finish even when the watcher is shutting down
			if err := fs.RemoveFiles(context.Background(), files); err != nil {
				log.Printf("Error removing files: %v", err)
			}
		}
	}

	for {
		select {
		case <-fs.watcherCtx.Done():
			return

		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}

			fileInfo, err := os.Stat(event.Name)
			if err != nil {
				// the file is gone, a rename reports the old name
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && fs.isSourceFile(event.Name) && !fs.isIgnored(event.Name, false) {
					pendingRemoves[event.Name] = true
					delete(pendingAdds, event.Name)
					resetTimer()
				}
				continue
			}

			if fileInfo.IsDir() {
				if event.Op&fsnotify.Create != 0 && !fs.isIgnored(event.Name, true) {
					if err := fs.addDirectoryToWatcher(event.Name); err != nil {
						log.Printf("Error adding directory to watcher: %v", err)
					}
				}
				continue
			}

			if !fs.isSourceFile(event.Name) || fs.isIgnored(event.Name, false) {
				continue
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pendingAdds[event.Name] = true
				delete(pendingRemoves, event.Name)
				resetTimer()
			}

		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-debounceTimer.C:
			processChanges()
		}
	}
}

// StopWatcher stops the file watcher
func (fs *FileScanner) StopWatcher() {
	if fs.watcher == nil {
		return
	}
	fs.cancel()
	fs.watcherWg.Wait()
	fs.watcher = nil
}

// addDirectoryToWatcher recursively adds a directory and its subdirectories to the watcher
func (fs *FileScanner) addDirectoryToWatcher(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if fs.isIgnored(path, true) {
			return filepath.SkipDir
		}
		if err := fs.watcher.Add(path); err != nil {
			log.Printf("Error watching directory %s: %v", path, err)
		}
		return nil
	})
}

// Close stops the file watcher and closes the state database. Indexers are
// owned by the caller.
func (fs *FileScanner) Close() error {
	fs.StopWatcher()
	fs.cancel()
	return fs.db.Close()
}

// IndexAll indexes every source file below the project root that changed
// since it was last indexed
func (fs *FileScanner) IndexAll(ctx context.Context) error {
	var files []string

	err := filepath.WalkDir(fs.projectRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if fs.isIgnored(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if fs.isSourceFile(path) && !fs.isIgnored(path, false) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk project directory: %w", err)
	}

	log.Printf("Found %d files to index", len(files))
	startTime := time.Now()

	if err := fs.IndexFiles(ctx, files); err != nil {
		return fmt.Errorf("failed to index files: %w", err)
	}

	log.Printf("Indexing took %s", time.Since(startTime))
	return nil
}

// fileStateSize is the byte length of a stored state. It holds the size, the
// mtime and an xxhash of the content.
const fileStateSize = 24

// fileNeedsIndexing compares the size and mtime of path with the recorded
// state
func (fs *FileScanner) fileNeedsIndexing(path string) (bool, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, nil, err
	}

	changed := true
	_ = fs.db.View(func(tx *bbolt.Tx) error {
		state := tx.Bucket(fileStateBucket).Get([]byte(path))
		if len(state) != fileStateSize {
			return nil
		}
		storedSize := binary.LittleEndian.Uint64(state[:8])
		storedMtime := binary.LittleEndian.Uint64(state[8:16])
		changed = storedSize != uint64(info.Size()) || storedMtime != uint64(info.ModTime().UnixNano())
		return nil
	})

	return changed, info, nil
}

// storedHash returns the content hash recorded for path
func (fs *FileScanner) storedHash(path string) (uint64, bool) {
	var hash uint64
	var ok bool
	_ = fs.db.View(func(tx *bbolt.Tx) error {
		state := tx.Bucket(fileStateBucket).Get([]byte(path))
		if len(state) == fileStateSize {
			hash = binary.LittleEndian.Uint64(state[16:])
			ok = true
		}
		return nil
	})
	return hash, ok
}

func (fs *FileScanner) updateFileState(path string, info os.FileInfo, hash uint64) error {
	return fs.db.Update(func(tx *bbolt.Tx) error {
		state := make([]byte, fileStateSize)
		binary.LittleEndian.PutUint64(state[:8], uint64(info.Size()))
		binary.LittleEndian.PutUint64(state[8:16], uint64(info.ModTime().UnixNano()))
		binary.LittleEndian.PutUint64(state[16:], hash)
		return tx.Bucket(fileStateBucket).Put([]byte(path), state)
	})
}

// RemoveFiles removes files from every indexer and forgets their state
func (fs *FileScanner) RemoveFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	for _, indexer := range fs.indexers() {
		if err := indexer.RemovedFiles(paths); err != nil {
			return fmt.Errorf("failed to remove files from %s: %w", indexer.ID(), err)
		}
	}

	err := fs.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(fileStateBucket)
		for _, path := range paths {
			if err := bucket.Delete([]byte(path)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to forget file states: %w", err)
	}
	return nil
}

// indexFile fetches the tree of one file and hands it to every indexer. A file
// whose tree cannot be fetched is dropped from the indexers and retried on the
// next change. A file whose content hash is unchanged only gets its state
// refreshed.
func (fs *FileScanner) indexFile(ctx context.Context, path string, info os.FileInfo) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	hash := xxhash.Sum64(content)
	if stored, ok := fs.storedHash(path); ok && stored == hash {
		return fs.updateFileState(path, info, hash)
	}

	indexers := fs.indexers()
	for _, indexer := range indexers {
		if err := indexer.RemovedFiles([]string{path}); err != nil {
			return fmt.Errorf("failed to reset %s in %s: %w", path, indexer.ID(), err)
		}
	}

	tree, err := fs.trees.FileTree(ctx, path)
	if err != nil {
		return err
	}

	for _, indexer := range indexers {
		if err := indexer.Index(path, tree, content); err != nil {
			return fmt.Errorf("failed to index %s in %s: %w", path, indexer.ID(), err)
		}
	}

	return fs.updateFileState(path, info, hash)
}

// IndexFiles indexes the given files using a bounded worker pool. Files that
// are ignored, missing, or unchanged are skipped. Per-file failures are logged
// and do not fail the whole run.
func (fs *FileScanner) IndexFiles(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return nil
	}

	fileChan := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < fs.options.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileChan {
				needsIndexing, info, err := fs.fileNeedsIndexing(path)
				if err != nil || !needsIndexing {
					continue
				}
				if err := fs.indexFile(ctx, path, info); err != nil {
					log.Printf("Error processing file: %v", err)
				}
			}
		}()
	}

send:
	for _, path := range files {
		if !fs.isSourceFile(path) || fs.isIgnored(path, false) {
			continue
		}
		select {
		case fileChan <- path:
		case <-ctx.Done():
			break send
		}
	}
	close(fileChan)
	wg.Wait()

	return ctx.Err()
}

// ClearHashes clears every indexer and all file states, forcing a full reindex
func (fs *FileScanner) ClearHashes() error {
	for _, indexer := range fs.indexers() {
		if err := indexer.Clear(); err != nil {
			return fmt.Errorf("failed to clear %s: %w", indexer.ID(), err)
		}
	}

	return fs.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(fileStateBucket); err != nil {
			return fmt.Errorf("failed to delete file state bucket: %w", err)
		}
		if _, err := tx.CreateBucket(fileStateBucket); err != nil {
			return fmt.Errorf("failed to create file state bucket: %w", err)
		}
		return nil
	})
}

func mapKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}
