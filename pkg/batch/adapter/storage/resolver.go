package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/dumpshift/pkg/batch/engine/step/retry"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/logger"
)

const moduleName = "storage"

// Resolver reads and writes references, opening one connection per scheme lazily.
type Resolver struct {
	factories   map[string]Factory
	connections map[string]StorageConnection
	retryPolicy retry.RetryPolicy
	mu          sync.Mutex
}

// NewResolver creates a Resolver. Reads are retried according to policy;
// a nil policy means a single attempt.
func NewResolver(policy retry.RetryPolicy, factories map[string]Factory) *Resolver {
	if policy == nil {
		policy = retry.NewRetryPolicy(1, 0, nil)
	}
	return &Resolver{
		factories:   factories,
		connections: make(map[string]StorageConnection),
		retryPolicy: policy,
	}
}

func (r *Resolver) connection(ctx context.Context, scheme string) (StorageConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.connections[scheme]; ok {
		return conn, nil
	}
	factory, ok := r.factories[scheme]
	if !ok {
		return nil, fmt.Errorf("no storage adapter for scheme %q", scheme)
	}
	conn, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", scheme, err)
	}
	r.connections[scheme] = conn
	logger.Debugf("Opened storage connection '%s' (%s).", conn.Name(), scheme)
	return conn, nil
}

// ReadAll returns the full content of ref. Failures satisfy errors.Is(err, exception.ErrIOFailure).
func (r *Resolver) ReadAll(ctx context.Context, ref string) ([]byte, error) {
	parsed := ParseRef(ref)
	conn, err := r.connection(ctx, parsed.Scheme)
	if err != nil {
		return nil, exception.NewIOFailure(moduleName, fmt.Sprintf("cannot read %s", ref), err)
	}

	var data []byte
	err = retry.Do(ctx, "read "+ref, r.retryPolicy, func(ctx context.Context) error {
		rc, err := conn.Download(ctx, parsed.Bucket, parsed.Object)
		if err != nil {
			return classify(err)
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		return classify(err)
	})
	if err != nil {
		return nil, exception.NewIOFailure(moduleName, fmt.Sprintf("cannot read %s", ref), err)
	}
	return data, nil
}

// Write stores data under ref, replacing any previous content.
func (r *Resolver) Write(ctx context.Context, ref string, data []byte) error {
	parsed := ParseRef(ref)
	conn, err := r.connection(ctx, parsed.Scheme)
	if err != nil {
		return exception.NewIOFailure(moduleName, fmt.Sprintf("cannot write %s", ref), err)
	}
	contentType := mime.TypeByExtension(path.Ext(parsed.Object))
	if contentType == "" {
		contentType = "application/sql"
	}
	if err := conn.Upload(ctx, parsed.Bucket, parsed.Object, bytes.NewReader(data), contentType); err != nil {
		return exception.NewIOFailure(moduleName, fmt.Sprintf("cannot write %s", ref), err)
	}
	return nil
}

// Close closes every opened connection.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for scheme, conn := range r.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s storage: %w", scheme, err))
		}
		delete(r.connections, scheme)
	}
	return result.ErrorOrNil()
}

// classify marks everything but a missing object as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	retryable := !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission)
	return exception.NewBatchError(moduleName, err.Error(), err, true, retryable)
}
