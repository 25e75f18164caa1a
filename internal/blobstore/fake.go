package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-process stand-in for Store, used by archiver and
// coordinator tests so they exercise the archival write policy without a
// network. It satisfies the same Put/Get shape as Store.
type Fake struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

// NewFake returns an empty fake blob store addressed as bucket.
func NewFake(bucket string) *Fake {
	return &Fake{bucket: bucket, objects: make(map[string][]byte)}
}

func (f *Fake) Put(_ context.Context, key string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.objects[key] = cp
	return fmt.Sprintf("s3://%s/%s", f.bucket, key), nil
}

func (f *Fake) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("blobstore: fake get %s/%s: not found", f.bucket, key)
	}
	return data, nil
}

// Has reports whether key was ever written; tests use this to assert the
// dual-write policy (S6/property 6) without racing Get's error path.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}
