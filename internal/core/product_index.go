package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/utils"
)

const (
	NumRelatedProducts  = 3   // Products attached to a chat prompt
	SimilarityThreshold = 0.6 // Minimum cosine similarity to count as related

	embedConcurrency = 4
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProductRetriever finds catalog products related to free text.
type ProductRetriever interface {
	Related(ctx context.Context, query string) []store.Product
}

type indexedProduct struct {
	product   store.Product
	embedding []float32
}

// ProductIndex keeps an in-memory embedding per catalog product and serves
// similarity lookups over them. Embeddings are computed on first use, and
// products that could not be embedded are retried at most once per
// retryInterval.
type ProductIndex struct {
	products store.ProductRepository
	embedder Embedder
	log      *zap.Logger

	flight        singleflight.Group
	retryInterval time.Duration
	now           func() time.Time

	mu          sync.RWMutex
	entries     []indexedProduct
	complete    bool
	lastAttempt time.Time
}

func NewProductIndex(products store.ProductRepository, embedder Embedder, log *zap.Logger) *ProductIndex {
	return &ProductIndex{
		products:      products,
		embedder:      embedder,
		log:           log.Named("product_index"),
		retryInterval: 30 * time.Second,
		now:           time.Now,
	}
}

func productDocument(p store.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) by %s. Category: %s.\n", p.NameEn, p.NameAr, p.Brand, p.Category)
	if p.DescriptionEn != "" {
		b.WriteString(p.DescriptionEn + "\n")
	}
	if p.DescriptionAr != "" {
		b.WriteString(p.DescriptionAr + "\n")
	}
	fmt.Fprintf(&b, "Skin types: %s.\nConcerns: %s.\nIngredients: %s.",
		strings.Join(p.SkinTypes, ", "), strings.Join(p.Concerns, ", "), strings.Join(p.Ingredients, ", "))
	return b.String()
}

// Load embeds every catalog product not yet in the index and returns the
// number of indexed products. Products whose embedding fails are skipped
// and retried by a later Load or lookup. Concurrent callers share one load.
func (x *ProductIndex) Load(ctx context.Context) (int, error) {
	// The load outlives a cancelled caller since other callers may share it.
	ch := x.flight.DoChan("load", func() (any, error) {
		return x.load(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		n, _ := res.Val.(int)
		return n, res.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (x *ProductIndex) load(ctx context.Context) (int, error) {
	const op = "core.ProductIndex.Load"
	x.mu.Lock()
	x.lastAttempt = x.now()
	have := make(map[int64]indexedProduct, len(x.entries))
	for _, e := range x.entries {
		have[e.product.ID] = e
	}
	x.mu.Unlock()

	all, err := x.products.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	vecs := make([][]float32, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, p := range all {
		if e, ok := have[p.ID]; ok {
			vecs[i] = e.embedding
			continue
		}
		g.Go(func() error {
			vec, err := x.embedder.Embed(gctx, productDocument(p))
			if err != nil {
				x.log.Warn("skipping product without embedding", zap.Int64("product_id", p.ID), zap.Error(err))
				return nil
			}
			vecs[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]indexedProduct, 0, len(all))
	for i, p := range all {
		if vecs[i] != nil {
			entries = append(entries, indexedProduct{product: p, embedding: vecs[i]})
		}
	}

	x.mu.Lock()
	x.entries = entries
	x.complete = len(entries) == len(all)
	x.mu.Unlock()

	if len(entries) == 0 && len(all) > 0 {
		return 0, fmt.Errorf("%s: no product could be embedded", op)
	}
	x.log.Info("product index loaded", zap.Int("products", len(entries)), zap.Int("missing", len(all)-len(entries)))
	return len(entries), nil
}

// snapshot returns the current entries, first retrying a partial index
// when the retry interval has passed.
func (x *ProductIndex) snapshot(ctx context.Context) []indexedProduct {
	x.mu.RLock()
	retry := !x.complete && (x.lastAttempt.IsZero() || x.now().Sub(x.lastAttempt) >= x.retryInterval)
	x.mu.RUnlock()

	if retry {
		if _, err := x.Load(ctx); err != nil {
			x.log.Warn("product index unavailable", zap.Error(err))
		}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.entries
}

// Related returns up to NumRelatedProducts products whose similarity to
// query is at least SimilarityThreshold, most similar first. Any failure
// yields no products.
func (x *ProductIndex) Related(ctx context.Context, query string) []store.Product {
	entries := x.snapshot(ctx)
	if len(entries) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}

	qvec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		x.log.Warn("failed to embed query, continuing without product context", zap.Error(err))
		return nil
	}

	type scored struct {
		product    store.Product
		similarity float32
	}
	matches := make([]scored, 0, len(entries))
	for _, e := range entries {
		sim, err := utils.CosineSimilarity(qvec, e.embedding)
		if err != nil {
			x.log.Debug("similarity skipped", zap.Int64("product_id", e.product.ID), zap.Error(err))
			continue
		}
		if sim >= SimilarityThreshold {
			matches = append(matches, scored{product: e.product, similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].similarity > matches[j].similarity
	})

	out := make([]store.Product, 0, NumRelatedProducts)
	for i := 0; i < len(matches) && i < NumRelatedProducts; i++ {
		out = append(out, matches[i].product)
	}
	return out
}
