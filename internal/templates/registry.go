// Package templates holds the registry of deployable template projects and
// loads their packaged archives from a local directory or an S3 bucket.
package templates

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sync"
)

// Template describes a deployable template project.
type Template struct {
	// Key identifies the template in deploy requests.
	Key string
	// Framework is the project framework sent with the deployment.
	Framework string
	// NeedsDatabase marks templates that require a managed database, which
	// adds the authorization/storage/connect steps to provisioning.
	NeedsDatabase bool
	// SecretEnvKey, when set, names an env var that gets a generated
	// 32-byte hex secret injected at project creation.
	SecretEnvKey string
}

// Archive is template package content plus its SHA-1 digest, used for
// content-addressed upload.
type Archive struct {
	Data   []byte
	Digest string
}

// Source fetches raw template archive bytes by key.
type Source interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Registry maps template keys to their descriptors and caches loaded
// archives for the lifetime of the process (archives are immutable).
type Registry struct {
	source    Source
	templates map[string]Template

	mu    sync.Mutex
	cache map[string]*Archive
}

// builtin is the set of templates the demo offers, mirroring the archives
// shipped under the templates directory.
var builtin = []Template{
	{Key: "nextjs", Framework: "nextjs"},
	{Key: "nextjs_with_prisma", Framework: "nextjs", NeedsDatabase: true},
	{Key: "nextjs_with_prisma_and_better_auth", Framework: "nextjs", NeedsDatabase: true, SecretEnvKey: "BETTER_AUTH_SECRET"},
}

// NewRegistry creates a registry over the given archive source.
func NewRegistry(source Source) *Registry {
	templates := make(map[string]Template, len(builtin))
	for _, t := range builtin {
		templates[t.Key] = t
	}
	return &Registry{
		source:    source,
		templates: templates,
		cache:     map[string]*Archive{},
	}
}

// Get returns the descriptor for a template key.
func (r *Registry) Get(key string) (Template, bool) {
	t, ok := r.templates[key]
	return t, ok
}

// LoadArchive returns the packaged archive for a template, fetching it from
// the source on first use and caching it afterwards.
func (r *Registry) LoadArchive(ctx context.Context, key string) (*Archive, error) {
	if _, ok := r.templates[key]; !ok {
		return nil, fmt.Errorf("unknown template %q", key)
	}

	r.mu.Lock()
	cached := r.cache[key]
	r.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	data, err := r.source.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %q: %w", key, err)
	}

	archive := &Archive{Data: data, Digest: DigestOf(data)}

	r.mu.Lock()
	r.cache[key] = archive
	r.mu.Unlock()

	return archive, nil
}

// DigestOf computes the hex SHA-1 content digest used for artifact upload.
func DigestOf(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
