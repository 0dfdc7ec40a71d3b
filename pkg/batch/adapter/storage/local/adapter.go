// Package local provides a local file system implementation of the storage adapter interfaces.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/tigerroll/dumpshift/pkg/batch/adapter/storage"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

// localAdapter implements the storage.StorageConnection interface for local file system operations.
// Relative object names are resolved against baseDir; absolute ones are used as is.
type localAdapter struct {
	baseDir string
	name    string
}

var _ storageAdapter.StorageConnection = (*localAdapter)(nil)

// NewLocalAdapter creates a new local adapter rooted at baseDir.
func NewLocalAdapter(baseDir, name string) (storageAdapter.StorageConnection, error) {
	if baseDir == "" {
		baseDir = "."
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("local storage adapter '%s': failed to stat BaseDir '%s': %w", name, baseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local storage adapter '%s': BaseDir '%s' is not a directory", name, baseDir)
	}
	return &localAdapter{baseDir: baseDir, name: name}, nil
}

// Factory returns a storage.Factory opening a local adapter rooted at baseDir.
func Factory(baseDir string) storageAdapter.Factory {
	return func(ctx context.Context) (storageAdapter.StorageConnection, error) {
		return NewLocalAdapter(baseDir, "local")
	}
}

// Close does nothing for the local file system adapter.
func (a *localAdapter) Close() error {
	logger.Debugf("Local storage adapter '%s' closed.", a.name)
	return nil
}

// Type returns storage.SchemeFile.
func (a *localAdapter) Type() string {
	return storageAdapter.SchemeFile
}

// Name returns the name of this connection.
func (a *localAdapter) Name() string {
	return a.name
}

// Upload writes data to the file, creating parent directories.
func (a *localAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	fullPath := a.resolvePath(bucket, objectName)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", fullPath, err)
	}
	if _, err := io.Copy(file, data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write data to file '%s': %w", fullPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file '%s': %w", fullPath, err)
	}
	logger.Debugf("Wrote '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

// Download opens the file for reading.
func (a *localAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	fullPath := a.resolvePath(bucket, objectName)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	logger.Debugf("Opened '%s' (local adapter '%s').", fullPath, a.name)
	return file, nil
}

// ListObjects walks the directory tree under bucket and calls fn for each file whose
// slash-separated name relative to the bucket directory starts with prefix.
func (a *localAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	basePath := a.resolvePath(bucket, "")

	err := filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		objectName, err := filepath.Rel(basePath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for '%s' from '%s': %w", path, basePath, err)
		}
		objectName = filepath.ToSlash(objectName)
		if !strings.HasPrefix(objectName, prefix) {
			return nil
		}
		return fn(objectName)
	})
	if err != nil {
		return fmt.Errorf("failed to list objects in '%s' with prefix '%s': %w", basePath, prefix, err)
	}
	return nil
}

// DeleteObject removes the file. A missing file is logged and ignored.
func (a *localAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	fullPath := a.resolvePath(bucket, objectName)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("Attempted to delete non-existent object '%s' (local adapter '%s').", fullPath, a.name)
			return nil
		}
		return fmt.Errorf("failed to delete file '%s': %w", fullPath, err)
	}
	logger.Debugf("Deleted object '%s' (local adapter '%s').", fullPath, a.name)
	return nil
}

func (a *localAdapter) resolvePath(bucket, objectName string) string {
	if filepath.IsAbs(objectName) {
		return objectName
	}
	return filepath.Join(a.baseDir, bucket, objectName)
}
