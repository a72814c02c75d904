package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/config-genie/genie/pkg/util"
)

// FileBackend appends history records to a JSON-lines file, rotating it
// when it grows past a size limit.
type FileBackend struct {
	path     string
	file     *os.File
	encoder  *json.Encoder
	mu       sync.RWMutex
	rotation RotationConfig
}

// RotationConfig configures history file rotation.
type RotationConfig struct {
	MaxSize    int64 // bytes before rotation, 0 disables
	MaxBackups int   // rotated files to retain, 0 keeps all
}

// NewFileBackend opens (or creates) the history file at path.
func NewFileBackend(path string, rotation RotationConfig) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	return &FileBackend{
		path:     path,
		file:     file,
		encoder:  json.NewEncoder(file),
		rotation: rotation,
	}, nil
}

func (b *FileBackend) Append(r *Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rotation.MaxSize > 0 {
		if info, err := b.file.Stat(); err == nil && info.Size() >= b.rotation.MaxSize {
			if err := b.rotate(); err != nil {
				return fmt.Errorf("rotating history file: %w", err)
			}
		}
	}
	return b.encoder.Encode(r)
}

func (b *FileBackend) Query(f Filter) ([]*Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	file, err := os.Open(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Record{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []*Record
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			util.Warnf("history: skipping malformed entry at line %d: %v", lineNum, err)
			continue
		}
		if f.matches(&r) {
			records = append(records, &r)
		}
	}
	return f.window(records), scanner.Err()
}

func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return b.file.Close()
	}
	return nil
}

func (b *FileBackend) rotate() error {
	if err := b.file.Close(); err != nil {
		return err
	}
	rotated := b.path + "." + time.Now().Format("20060102-150405")
	if err := os.Rename(b.path, rotated); err != nil {
		return err
	}
	file, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	b.file = file
	b.encoder = json.NewEncoder(file)

	if b.rotation.MaxBackups > 0 {
		b.pruneBackups()
	}
	return nil
}

func (b *FileBackend) pruneBackups() {
	matches, err := filepath.Glob(b.path + ".*")
	if err != nil {
		return
	}
	type backup struct {
		path    string
		modTime time.Time
	}
	var backups []backup
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path, info.ModTime()})
	}
	if len(backups) <= b.rotation.MaxBackups {
		return
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.Before(backups[j].modTime)
	})
	for _, old := range backups[:len(backups)-b.rotation.MaxBackups] {
		os.Remove(old.path)
	}
}
