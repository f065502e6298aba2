package records

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ProjectCache resolves project keys to ids through the record service
// and memoizes the full mapping. Invalidation is explicit; the owner
// wires it to schema reloads.
type ProjectCache struct {
	client *Client
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	byKey  map[string]int64
}

// NewProjectCache creates an empty cache backed by the record service.
func NewProjectCache(client *Client, logger *zap.Logger) *ProjectCache {
	return &ProjectCache{
		client: client,
		logger: logger.Named("projects"),
	}
}

// ResolveID returns the project id for a key, loading the mapping on
// first use. The second return is false when the key is unknown.
func (p *ProjectCache) ResolveID(ctx context.Context, key string) (int64, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		if err := p.loadLocked(ctx); err != nil {
			return 0, false, err
		}
	}

	id, ok := p.byKey[strings.ToUpper(key)]
	return id, ok, nil
}

// Invalidate drops the cached mapping. The next ResolveID reloads it.
func (p *ProjectCache) Invalidate() {
	p.mu.Lock()
	p.loaded = false
	p.byKey = nil
	p.mu.Unlock()
	p.logger.Debug("project cache invalidated")
}

func (p *ProjectCache) loadLocked(ctx context.Context) error {
	projects, err := p.client.ListProjects(ctx)
	if err != nil {
		return err
	}

	byKey := map[string]int64{}
	for _, project := range projects {
		key, _ := project["key"].(string)
		if key == "" {
			continue
		}
		if id, ok := numericID(project["id"]); ok {
			byKey[strings.ToUpper(key)] = id
		}
	}

	p.byKey = byKey
	p.loaded = true
	p.logger.Debug("project cache loaded", zap.Int("projects", len(byKey)))
	return nil
}

// numericID accepts the id shapes JSON decoding can produce.
func numericID(v any) (int64, bool) {
	switch id := v.(type) {
	case float64:
		return int64(id), true
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case int64:
		return id, true
	default:
		return 0, false
	}
}
