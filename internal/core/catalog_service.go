package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/utils"
)

const DefaultPharmacyRadiusKm = 10.0

type CatalogStore interface {
	store.ProductRepository
	store.PharmacyRepository
}

// CatalogService serves the read-only product and pharmacy reference data.
type CatalogService struct {
	db  CatalogStore
	log *zap.Logger
}

func NewCatalogService(db CatalogStore, log *zap.Logger) *CatalogService {
	return &CatalogService{db: db, log: log.Named("catalog")}
}

func (s *CatalogService) Products(ctx context.Context, f store.ProductFilter) ([]store.Product, error) {
	const op = "core.CatalogService.Products"
	list, err := s.db.ListProducts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *CatalogService) Product(ctx context.Context, id int64) (*store.Product, error) {
	const op = "core.CatalogService.Product"
	p, err := s.db.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w: product %d", op, ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Search matches query against both names, the brand and the ingredient
// list, ignoring case.
func (s *CatalogService) Search(ctx context.Context, query string) ([]store.Product, error) {
	const op = "core.CatalogService.Search"
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("%s: %w", op, invalidf("search query is required"))
	}

	all, err := s.db.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := []store.Product{}
	for _, p := range all {
		if productMatches(p, q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func productMatches(p store.Product, q string) bool {
	for _, field := range []string{p.NameEn, p.NameAr, p.Brand} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	for _, ing := range p.Ingredients {
		if strings.Contains(strings.ToLower(ing), q) {
			return true
		}
	}
	return false
}

// Categories returns the distinct product categories, sorted.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	const op = "core.CatalogService.Categories"
	all, err := s.db.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range all {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

type NearbyPharmacy struct {
	store.Pharmacy
	DistanceKm float64 `json:"distanceKm"`
}

func (s *CatalogService) Pharmacies(ctx context.Context) ([]store.Pharmacy, error) {
	const op = "core.CatalogService.Pharmacies"
	list, err := s.db.ListPharmacies(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// NearbyPharmacies returns the pharmacies within radiusKm of (lat, lng) by
// great-circle distance, nearest first. radiusKm <= 0 uses the default.
func (s *CatalogService) NearbyPharmacies(ctx context.Context, lat, lng, radiusKm float64) ([]NearbyPharmacy, error) {
	const op = "core.CatalogService.NearbyPharmacies"
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%s: %w", op, invalidf("coordinates out of range"))
	}
	if radiusKm <= 0 {
		radiusKm = DefaultPharmacyRadiusKm
	}

	list, err := s.db.ListPharmacies(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := []NearbyPharmacy{}
	for _, p := range list {
		d := utils.HaversineKm(lat, lng, p.Location.Lat, p.Location.Lng)
		if d <= radiusKm {
			out = append(out, NearbyPharmacy{Pharmacy: p, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}
