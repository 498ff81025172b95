package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

// keywordEmbedder returns the vector of the first key contained in text.
type keywordEmbedder struct {
	keys    []string
	vectors map[string][]float32
	fail    atomic.Bool
	failOn  string // fails texts containing it
	calls   atomic.Int32
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.fail.Load() || (e.failOn != "" && strings.Contains(text, e.failOn)) {
		return nil, errors.New("embedding service unavailable")
	}
	for _, k := range e.keys {
		if strings.Contains(text, k) {
			return e.vectors[k], nil
		}
	}
	return []float32{0, 0}, nil
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{
		keys: []string{"Zed Hydrating Mist", "Vera", "Starville", "Rachel", "CareFree", "Eva Skin", "hydration please"},
		vectors: map[string][]float32{
			"Zed Hydrating Mist": {0, 1},
			"Vera":               {0.1, 1},
			"Starville":          {0.6, 0.8},
			"Rachel":             {1, 0},
			"CareFree":           {0.9, 0.436},
			"Eva Skin":           {0.707, 0.707},
			"hydration please":   {0, 1},
		},
	}
}

func TestProductIndex_Related(t *testing.T) {
	ctx := context.Background()

	t.Run("above threshold, most similar first", func(t *testing.T) {
		s := seededStore(t)
		idx := NewProductIndex(s, newKeywordEmbedder(), zap.NewNop())

		got := idx.Related(ctx, "hydration please")
		assert.Equal(t, []string{
			"Vera Moisturizing Cream",
			"Starville Brightening Cream",
			"Eva Skin Clinic Sunscreen Gel SPF 50",
		}, names(got))
	})

	t.Run("at most three", func(t *testing.T) {
		s := seededStore(t)
		require.NoError(t, s.CreateProduct(ctx, &store.Product{NameEn: "Zed Hydrating Mist", Category: "toner"}))
		idx := NewProductIndex(s, newKeywordEmbedder(), zap.NewNop())

		got := idx.Related(ctx, "hydration please")
		assert.Equal(t, []string{
			"Zed Hydrating Mist",
			"Vera Moisturizing Cream",
			"Starville Brightening Cream",
		}, names(got))
	})

	t.Run("embeddings are computed once", func(t *testing.T) {
		s := seededStore(t)
		emb := newKeywordEmbedder()
		idx := NewProductIndex(s, emb, zap.NewNop())

		n, err := idx.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		idx.Related(ctx, "hydration please")
		idx.Related(ctx, "hydration please")
		assert.EqualValues(t, 5+2, emb.calls.Load())
	})

	t.Run("outage yields no context and is retried", func(t *testing.T) {
		s := seededStore(t)
		emb := newKeywordEmbedder()
		emb.fail.Store(true)
		idx := NewProductIndex(s, emb, zap.NewNop())
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		idx.now = func() time.Time { return now }

		_, err := idx.Load(ctx)
		assert.Error(t, err)
		assert.Empty(t, idx.Related(ctx, "hydration please"))

		emb.fail.Store(false)
		assert.Empty(t, idx.Related(ctx, "hydration please"), "no retry within the interval")

		now = now.Add(idx.retryInterval)
		assert.Len(t, idx.Related(ctx, "hydration please"), 3)
	})

	t.Run("partially embedded index retries only the missing products", func(t *testing.T) {
		s := seededStore(t)
		emb := newKeywordEmbedder()
		emb.failOn = "Vera"
		idx := NewProductIndex(s, emb, zap.NewNop())
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		idx.now = func() time.Time { return now }

		n, err := idx.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.NotContains(t, names(idx.Related(ctx, "hydration please")), "Vera Moisturizing Cream")

		emb.failOn = ""
		emb.calls.Store(0)
		now = now.Add(idx.retryInterval)
		got := idx.Related(ctx, "hydration please")
		assert.Equal(t, "Vera Moisturizing Cream", got[0].NameEn)
		assert.EqualValues(t, 1+1, emb.calls.Load(), "one missing product and the query")

		emb.calls.Store(0)
		now = now.Add(idx.retryInterval)
		idx.Related(ctx, "hydration please")
		assert.EqualValues(t, 1, emb.calls.Load(), "complete index is not reloaded")
	})

	t.Run("cancelled caller does not abort the shared load", func(t *testing.T) {
		s := seededStore(t)
		idx := NewProductIndex(s, newKeywordEmbedder(), zap.NewNop())

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _ = idx.Load(cctx)

		n, err := idx.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("blank query", func(t *testing.T) {
		s := seededStore(t)
		idx := NewProductIndex(s, newKeywordEmbedder(), zap.NewNop())
		assert.Empty(t, idx.Related(ctx, "  "))
	})
}
