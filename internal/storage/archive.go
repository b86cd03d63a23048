// Package storage archives raw webhook payloads through a pluggable blob store.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

const payloadContentType = "application/json"

// Archiver writes payloads to content-addressed paths of the form
// <prefix>/<product_id>/<sha256>.json. Identical deliveries share a path.
type Archiver struct {
	blobs  fitment.BlobStore
	hasher fitment.Hasher
	prefix string
}

// NewArchiver builds an Archiver. A nil blob store yields nil, which callers
// treat as archiving disabled.
func NewArchiver(blobs fitment.BlobStore, hasher fitment.Hasher, prefix string) *Archiver {
	if blobs == nil || hasher == nil {
		return nil
	}
	return &Archiver{blobs: blobs, hasher: hasher, prefix: strings.Trim(prefix, "/")}
}

// Path returns the object path a payload would be archived under.
func (a *Archiver) Path(productID string, payload []byte) (string, error) {
	digest, err := a.hasher.Hash(payload)
	if err != nil {
		return "", fmt.Errorf("hash payload: %w", err)
	}
	id := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(productID)
	if id == "" {
		id = "unknown"
	}
	return path.Join(a.prefix, id, digest+".json"), nil
}

// Archive stores payload and returns the blob URI.
func (a *Archiver) Archive(ctx context.Context, productID string, payload []byte) (string, error) {
	p, err := a.Path(productID, payload)
	if err != nil {
		return "", err
	}
	uri, err := a.blobs.PutObject(ctx, p, payloadContentType, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("archive payload: %w", err)
	}
	return uri, nil
}
