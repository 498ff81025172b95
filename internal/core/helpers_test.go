package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

type GeneratorMock struct {
	mock.Mock
}

func (m *GeneratorMock) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *GeneratorMock) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Error(1)
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	catalog, err := store.LoadCatalog("")
	require.NoError(t, err)
	_, err = store.SeedCatalog(context.Background(), s, catalog)
	require.NoError(t, err)
	return s
}

func newUser(t *testing.T, s store.UserRepository, name string) *store.User {
	t.Helper()
	u := &store.User{Username: name, Email: name + "@example.com", PasswordHash: "x", PreferredLanguage: "en", BudgetTier: 2}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func productByName(t *testing.T, s store.ProductRepository, nameEn string) store.Product {
	t.Helper()
	all, err := s.ListProducts(context.Background(), store.ProductFilter{})
	require.NoError(t, err)
	for _, p := range all {
		if p.NameEn == nameEn {
			return p
		}
	}
	t.Fatalf("product %q not seeded", nameEn)
	return store.Product{}
}
