// Package schema maintains an immutable snapshot of the queryable field
// catalog plus a vector index over it for top-k retrieval. Snapshots are
// replaced only by explicit reload, never mutated in place.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/llm"
	"github.com/nlquery/nlq-engine/pkg/models"
)

// CatalogSource supplies the full current field catalog.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) ([]models.SchemaField, error)
}

// InjectedScore is the sentinel distance assigned to essential fields
// added outside embedding retrieval. It sorts after any real match.
const InjectedScore = 99.0

// snapshot is one immutable build of the catalog and its vectors.
// fields[i] corresponds to vectors[i].
type snapshot struct {
	fields  []models.SchemaField
	vectors [][]float32
	groups  []string
}

// Index is the point-in-time schema snapshot with embedding retrieval.
type Index struct {
	source   CatalogSource
	embedder llm.Embedder
	model    string
	cfg      config.RetrievalConfig
	logger   *zap.Logger

	mu      sync.RWMutex
	current *snapshot

	hooksMu     sync.Mutex
	reloadHooks []func()
}

// NewIndex creates an index. Call Load before first use.
func NewIndex(source CatalogSource, embedder llm.Embedder, embeddingModel string, cfg config.RetrievalConfig, logger *zap.Logger) *Index {
	return &Index{
		source:   source,
		embedder: embedder,
		model:    embeddingModel,
		cfg:      cfg,
		logger:   logger.Named("schema"),
	}
}

// Load builds the initial snapshot. An empty catalog is fatal for the
// pipeline and reported as ErrEmptyCatalog.
func (idx *Index) Load(ctx context.Context) error {
	snap, err := idx.build(ctx)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.current = snap
	idx.mu.Unlock()

	idx.logger.Info("schema index built",
		zap.Int("fields", len(snap.fields)),
		zap.Int("groups", len(snap.groups)))
	return nil
}

// Reload builds a fresh snapshot and swaps it in atomically. Requests
// in flight keep using the snapshot they started with. Reload hooks run
// after the swap.
func (idx *Index) Reload(ctx context.Context) error {
	snap, err := idx.build(ctx)
	if err != nil {
		return fmt.Errorf("reload schema: %w", err)
	}

	idx.mu.Lock()
	idx.current = snap
	idx.mu.Unlock()

	idx.hooksMu.Lock()
	hooks := make([]func(), len(idx.reloadHooks))
	copy(hooks, idx.reloadHooks)
	idx.hooksMu.Unlock()
	for _, hook := range hooks {
		hook()
	}

	idx.logger.Info("schema index reloaded", zap.Int("fields", len(snap.fields)))
	return nil
}

// OnReload registers a hook invoked after every successful Reload.
// Used to invalidate caches derived from the catalog.
func (idx *Index) OnReload(hook func()) {
	idx.hooksMu.Lock()
	idx.reloadHooks = append(idx.reloadHooks, hook)
	idx.hooksMu.Unlock()
}

func (idx *Index) build(ctx context.Context) (*snapshot, error) {
	fields, err := idx.source.FetchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrEmptyCatalog
	}

	texts := make([]string, len(fields))
	for i, f := range fields {
		texts[i] = embeddingText(f)
	}

	vectors, err := idx.embedder.CreateEmbeddings(ctx, texts, idx.model)
	if err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}
	if len(vectors) != len(fields) {
		return nil, fmt.Errorf("embed catalog: got %d vectors for %d fields", len(vectors), len(fields))
	}

	groupSet := map[string]bool{}
	for _, f := range fields {
		groupSet[f.Group] = true
	}
	groups := make([]string, 0, len(groupSet))
	for g := range groupSet {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	return &snapshot{fields: fields, vectors: vectors, groups: groups}, nil
}

// embeddingText renders the document embedded for one field.
func embeddingText(f models.SchemaField) string {
	var b strings.Builder
	b.WriteString(f.Title)
	b.WriteString(". ")
	if f.Description != "" {
		b.WriteString(f.Description)
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "Group: %s. Type: %s, %s", f.Group, f.Kind, f.ValueType)
	if f.Aggregation != "" {
		fmt.Fprintf(&b, ". Aggregation: %s", f.Aggregation)
	}
	return b.String()
}

// Search embeds the question and returns the k nearest fields by
// squared L2 distance, lowest first. Catalog order breaks ties so
// results are deterministic.
func (idx *Index) Search(ctx context.Context, question string, k int) ([]models.CandidateField, error) {
	idx.mu.RLock()
	snap := idx.current
	idx.mu.RUnlock()
	if snap == nil {
		return nil, fmt.Errorf("schema index not loaded")
	}

	queryVec, err := idx.embedder.CreateEmbedding(ctx, question, idx.model)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	candidates := make([]models.CandidateField, len(snap.fields))
	for i, f := range snap.fields {
		candidates[i] = models.CandidateField{
			SchemaField: f,
			Score:       squaredL2(queryVec, snap.vectors[i]),
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score < candidates[j].Score
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// EnrichEssentials appends configured essential fields to the candidate
// set when the top candidates already touch the configured core groups.
// Injected fields carry the sentinel score and never reorder the
// retrieved candidates.
func (idx *Index) EnrichEssentials(candidates []models.CandidateField) []models.CandidateField {
	if len(idx.cfg.EssentialFields) == 0 || len(idx.cfg.EssentialGroups) == 0 {
		return candidates
	}

	idx.mu.RLock()
	snap := idx.current
	idx.mu.RUnlock()
	if snap == nil {
		return candidates
	}

	coreGroups := map[string]bool{}
	for _, g := range idx.cfg.EssentialGroups {
		coreGroups[g] = true
	}

	touchesCore := false
	top := candidates
	if len(top) > 5 {
		top = top[:5]
	}
	for _, c := range top {
		if coreGroups[c.Group] {
			touchesCore = true
			break
		}
	}
	if !touchesCore {
		return candidates
	}

	existing := map[string]bool{}
	for _, c := range candidates {
		existing[c.Name] = true
	}

	wanted := map[string]bool{}
	for _, name := range idx.cfg.EssentialFields {
		if !existing[name] {
			wanted[name] = true
		}
	}
	if len(wanted) == 0 {
		return candidates
	}

	for _, f := range snap.fields {
		if wanted[f.Name] {
			candidates = append(candidates, models.CandidateField{
				SchemaField: f,
				Score:       InjectedScore,
				Injected:    true,
			})
		}
	}
	return candidates
}

// Groups returns the sorted distinct group names of the current snapshot.
func (idx *Index) Groups() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.current == nil {
		return nil
	}
	return idx.current.groups
}

// Fields returns the fields of the current snapshot.
func (idx *Index) Fields() []models.SchemaField {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.current == nil {
		return nil
	}
	return idx.current.fields
}

func squaredL2(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
