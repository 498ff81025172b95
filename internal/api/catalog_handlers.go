package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/YoussefAbdelmaksod/Beauty-care-app/internal/store"
)

func (h *APIHandler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		list, err := h.svc.Catalog.Search(r.Context(), search)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, list)
		return
	}

	f := store.ProductFilter{Category: q.Get("category")}
	if st := q.Get("skinType"); st != "" {
		f.SkinTypes = []string{st}
	}
	if c := q.Get("concern"); c != "" {
		f.Concerns = []string{c}
	}
	if mp := q.Get("maxPrice"); mp != "" {
		v, err := strconv.ParseFloat(mp, 64)
		if err != nil || v < 0 {
			writeError(w, r, http.StatusBadRequest, "maxPrice must be a non-negative number")
			return
		}
		f.MaxPrice = v
	}

	list, err := h.svc.Catalog.Products(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *APIHandler) SearchProductsHandler(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(r.URL.Query().Get("q")) == "" {
		writeError(w, r, http.StatusBadRequest, "Search query is required")
		return
	}
	list, err := h.svc.Catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *APIHandler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cats)
}

func (h *APIHandler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "Invalid product id")
		return
	}
	p, err := h.svc.Catalog.Product(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// PharmaciesHandler lists every pharmacy, or only the nearby ones when
// both lat and lng are given.
func (h *APIHandler) PharmaciesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		list, err := h.svc.Catalog.Pharmacies(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, list)
		return
	}

	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(w, r, http.StatusBadRequest, "lat and lng must be numbers")
		return
	}
	var radius float64
	if rs := q.Get("radius"); rs != "" {
		v, err := strconv.ParseFloat(rs, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "radius must be a number")
			return
		}
		radius = v
	}

	list, err := h.svc.Catalog.NearbyPharmacies(r.Context(), lat, lng, radius)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}
