// Package categorize resolves establishment names into semantic categories
// using a deterministic cascade: manual override, keyword pattern rules
// with a category-priority tie-break, then a coordinate-gated fuzzy name
// match against reference datasets.
package categorize

// Category is a semantic establishment category.
type Category string

const (
	CategoryInstitutional    Category = "institutional"
	CategoryHotel            Category = "hotel"
	CategorySportsRecreation Category = "sports_recreation"
	CategoryCatering         Category = "catering"
	CategoryFoodTruck        Category = "food_truck"
	CategoryGrocery          Category = "grocery"
	CategorySpecialtyFood    Category = "specialty_food"
	CategoryIceCream         Category = "ice_cream"
	CategoryBakery           Category = "bakery"
	CategoryPub              Category = "pub"
	CategoryBar              Category = "bar"
	CategoryCafe             Category = "cafe"
	CategoryFastFood         Category = "fast_food"
	CategoryRestaurant       Category = "restaurant"
)

// AllCategories returns the standard categories in priority order, the
// category that wins ties first.
func AllCategories() []Category {
	return []Category{
		CategoryInstitutional,
		CategoryHotel,
		CategorySportsRecreation,
		CategoryCatering,
		CategoryFoodTruck,
		CategoryGrocery,
		CategorySpecialtyFood,
		CategoryIceCream,
		CategoryBakery,
		CategoryPub,
		CategoryBar,
		CategoryCafe,
		CategoryFastFood,
		CategoryRestaurant,
	}
}

// ValidCategory reports whether c is one of the standard categories.
func ValidCategory(c Category) bool {
	for _, known := range AllCategories() {
		if known == c {
			return true
		}
	}
	return false
}

// Source records which cascade stage resolved a category.
type Source string

const (
	SourceOverride Source = "override"
	SourcePattern  Source = "pattern"
	SourceCrossref Source = "crossref"
	SourceNone     Source = "none"
)
