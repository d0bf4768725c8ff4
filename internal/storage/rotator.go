package storage

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
)

const (
	// Rotation triggers
	MaxMatchesPerFile = 1000
	MaxFileAge        = 1 * time.Hour
)

// ErrTimelineNotArchived marks a replayed match whose timeline was absent
// when it was archived.
var ErrTimelineNotArchived = errors.New("timeline not archived")

// FileRotator writes archived matches to rotating JSONL files. Files are
// written under hot/ and moved to warm/ once closed.
type FileRotator struct {
	mu     sync.Mutex
	logger *log.Logger

	hotDir  string
	warmDir string
	coldDir string

	maxMatches int
	maxAge     time.Duration
	now        func() time.Time

	currentFile   *os.File
	currentWriter *bufio.Writer
	currentPath   string
	matchCount    int
	fileOpenedAt  time.Time
	sequence      int
}

// RotatorOption configures a FileRotator.
type RotatorOption func(*FileRotator)

// WithRotation overrides the rotation triggers.
func WithRotation(maxMatches int, maxAge time.Duration) RotatorOption {
	return func(r *FileRotator) {
		r.maxMatches = maxMatches
		r.maxAge = maxAge
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) RotatorOption {
	return func(r *FileRotator) {
		r.now = now
	}
}

// NewFileRotator creates a new rotator with the given base directory
func NewFileRotator(baseDir string, opts ...RotatorOption) (*FileRotator, error) {
	r := &FileRotator{
		logger:     log.WithPrefix("[Rotator]"),
		hotDir:     filepath.Join(baseDir, "hot"),
		warmDir:    filepath.Join(baseDir, "warm"),
		coldDir:    filepath.Join(baseDir, "cold"),
		maxMatches: MaxMatchesPerFile,
		maxAge:     MaxFileAge,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, dir := range []string{r.hotDir, r.warmDir, r.coldDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := r.rotate(); err != nil {
		return nil, err
	}
	return r, nil
}

// WarmDir returns the directory closed files are moved to.
func (r *FileRotator) WarmDir() string {
	return r.warmDir
}

// ColdDir returns the directory compressed archives are written to.
func (r *FileRotator) ColdDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.coldDir
}

// SetColdDir allows setting a different cold storage path (e.g., HDD)
func (r *FileRotator) SetColdDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create cold directory: %w", err)
	}
	r.mu.Lock()
	r.coldDir = path
	r.mu.Unlock()
	return nil
}

// WriteMatch appends one match to the current file, flushes, and rotates
// when a trigger is hit.
func (r *FileRotator) WriteMatch(rec ArchivedMatch) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal match %s: %w", rec.MatchID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFile == nil {
		return errors.New("rotator is closed")
	}
	if _, err := r.currentWriter.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := r.currentWriter.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	r.matchCount++

	if err := r.currentWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if r.shouldRotate() {
		return r.rotate()
	}
	return nil
}

func (r *FileRotator) shouldRotate() bool {
	if r.currentFile == nil {
		return true
	}
	if r.matchCount >= r.maxMatches {
		return true
	}
	return r.now().Sub(r.fileOpenedAt) >= r.maxAge
}

// rotate closes the current file, moves it to warm storage and opens a new one.
func (r *FileRotator) rotate() error {
	if r.currentFile != nil {
		if err := r.closeCurrent(); err != nil {
			return err
		}
	}

	r.sequence++
	filename := fmt.Sprintf("raw_matches_%s_%04d.jsonl", r.now().Format("2006-01-02_15-04-05"), r.sequence)
	r.currentPath = filepath.Join(r.hotDir, filename)

	file, err := os.Create(r.currentPath)
	if err != nil {
		return fmt.Errorf("failed to create new file: %w", err)
	}

	r.currentFile = file
	r.currentWriter = bufio.NewWriterSize(file, 64*1024)
	r.matchCount = 0
	r.fileOpenedAt = r.now()

	r.logger.Debug("Opened new file", "file", filename)
	return nil
}

// closeCurrent flushes and closes the open file. Files with data move to
// warm storage; empty ones are removed.
func (r *FileRotator) closeCurrent() error {
	if err := r.currentWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	if err := r.currentFile.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	r.currentFile = nil

	if r.matchCount == 0 {
		return os.Remove(r.currentPath)
	}
	warmPath := filepath.Join(r.warmDir, filepath.Base(r.currentPath))
	if err := os.Rename(r.currentPath, warmPath); err != nil {
		return fmt.Errorf("failed to move to warm storage: %w", err)
	}
	r.logger.Info("Moved file to warm storage", "file", filepath.Base(r.currentPath), "matches", r.matchCount)
	return nil
}

// Close flushes and closes the current file
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFile == nil {
		return nil
	}
	return r.closeCurrent()
}

// Stats returns current rotator statistics
func (r *FileRotator) Stats() (matchesInCurrentFile int, currentFileName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchCount, filepath.Base(r.currentPath)
}

// CompressToCold compresses a warm file and moves it to cold storage
func CompressToCold(warmPath, coldDir string) (string, error) {
	src, err := os.Open(warmPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	coldPath := filepath.Join(coldDir, filepath.Base(warmPath)+".gz")
	dst, err := os.Create(coldPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	if _, err := io.Copy(gzWriter, src); err != nil {
		return "", err
	}
	if err := gzWriter.Close(); err != nil {
		return "", err
	}

	if err := os.Remove(warmPath); err != nil {
		return "", err
	}
	return coldPath, nil
}
