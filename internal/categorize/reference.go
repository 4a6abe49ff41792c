package categorize

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Reference is one record from a cross-reference dataset: a known
// establishment with coordinates and an already-resolved category.
type Reference struct {
	Name     string
	Lat      float64
	Lng      float64
	Category Category

	words map[string]struct{}
}

// NewReference builds a reference with its word set precomputed.
func NewReference(name string, lat, lng float64, cat Category) Reference {
	return Reference{Name: name, Lat: lat, Lng: lng, Category: cat, words: WordSet(name)}
}

// osmTagCategories maps open-map amenity/shop tags to categories. Tags
// outside this table carry no usable signal and their rows are skipped.
var osmTagCategories = map[string]Category{
	"restaurant":  CategoryRestaurant,
	"fast_food":   CategoryFastFood,
	"cafe":        CategoryCafe,
	"bar":         CategoryBar,
	"pub":         CategoryPub,
	"bakery":      CategoryBakery,
	"ice_cream":   CategoryIceCream,
	"supermarket": CategoryGrocery,
	"convenience": CategoryGrocery,
	"greengrocer": CategoryGrocery,
	"deli":        CategorySpecialtyFood,
	"butcher":     CategorySpecialtyFood,
	"seafood":     CategorySpecialtyFood,
	"cheese":      CategorySpecialtyFood,
	"caterer":     CategoryCatering,
}

// LoadOSMReferences reads open-map food points from CSV (columns: name,
// lat, lng or lon, amenity or shop). Rows with no mappable tag or no
// usable coordinates are skipped and counted.
func LoadOSMReferences(path string) ([]Reference, error) {
	return loadReferenceCSV(path, func(row func(...string) string) (Reference, bool) {
		tag := strings.ToLower(row("amenity", "shop", "tag"))
		cat, ok := osmTagCategories[tag]
		if !ok {
			return Reference{}, false
		}
		return buildReference(row, cat)
	})
}

// LoadGroceryReferences reads the grocery registry from CSV (columns:
// name, lat, lng or lon). Every usable row is a grocery reference.
func LoadGroceryReferences(path string) ([]Reference, error) {
	return loadReferenceCSV(path, func(row func(...string) string) (Reference, bool) {
		return buildReference(row, CategoryGrocery)
	})
}

func buildReference(row func(...string) string, cat Category) (Reference, bool) {
	name := row("name")
	if strings.TrimSpace(name) == "" {
		return Reference{}, false
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(row("lat", "latitude", "y")), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(row("lng", "lon", "longitude", "x")), 64)
	if latErr != nil || lngErr != nil || math.IsNaN(lat) || math.IsNaN(lng) {
		return Reference{}, false
	}
	if lat == 0 && lng == 0 {
		return Reference{}, false
	}
	return NewReference(name, lat, lng, cat), true
}

// loadReferenceCSV walks a reference CSV, handing each row to build as a
// column-name lookup. Malformed rows are skipped, never fatal.
func loadReferenceCSV(path string, build func(row func(...string) string) (Reference, bool)) ([]Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "categorize: open reference file %s", path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "categorize: read reference header %s", path)
	}
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var refs []Reference
	var skipped int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		row := func(names ...string) string {
			for _, name := range names {
				if i, ok := colIdx[name]; ok && i < len(record) {
					return record[i]
				}
			}
			return ""
		}
		ref, ok := build(row)
		if !ok {
			skipped++
			continue
		}
		refs = append(refs, ref)
	}

	zap.L().Info("reference dataset loaded",
		zap.String("file", filepath.Base(path)),
		zap.Int("references", len(refs)),
		zap.Int("skipped", skipped))
	return refs, nil
}
