package categorize

import (
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rule binds one category to its keyword patterns. Priority is the
// tie-break rank applied when a name matches patterns from more than one
// category; the lowest priority number wins regardless of rule order.
type Rule struct {
	Category Category `yaml:"category"`
	Priority int      `yaml:"priority"`
	Patterns []string `yaml:"patterns"`
}

// DefaultRules returns the standard keyword table. Patterns are matched
// word-boundary-aware against the normalized name, so French variants and
// chain names sit in the same lists as generic food words.
func DefaultRules() []Rule {
	return []Rule{
		{Category: CategoryInstitutional, Priority: 1, Patterns: []string{
			"school", "ecole", "college", "university", "universite",
			"hospital", "hopital", "cafeteria", "long term care",
			"retirement", "daycare", "garderie", "community centre",
			"community center", "legion", "ymca", "ywca",
		}},
		{Category: CategoryHotel, Priority: 2, Patterns: []string{
			"hotel", "motel", "inn", "suites", "bed and breakfast",
		}},
		{Category: CategorySportsRecreation, Priority: 3, Patterns: []string{
			"arena", "stadium", "golf", "curling", "bowling", "fitness",
			"gym", "pool", "rink", "recreation",
		}},
		{Category: CategoryCatering, Priority: 4, Patterns: []string{
			"catering", "caterer", "banquet", "traiteur",
		}},
		{Category: CategoryFoodTruck, Priority: 5, Patterns: []string{
			"food truck", "chip wagon", "chipwagon", "mobile canteen",
			"street food", "cantine",
		}},
		{Category: CategoryGrocery, Priority: 6, Patterns: []string{
			"grocery", "supermarket", "supermarche", "epicerie",
			"food basics", "farm boy", "loblaws", "sobeys", "freshco",
			"no frills", "independent grocer",
		}},
		{Category: CategorySpecialtyFood, Priority: 7, Patterns: []string{
			"butcher", "boucherie", "fishmonger", "poissonnerie",
			"delicatessen", "deli", "fromagerie", "cheese", "spice",
			"bulk barn", "health food",
		}},
		{Category: CategoryIceCream, Priority: 8, Patterns: []string{
			"ice cream", "creme glacee", "gelato", "frozen yogurt",
			"yogourt", "dairy bar",
		}},
		{Category: CategoryBakery, Priority: 9, Patterns: []string{
			"bakery", "boulangerie", "patisserie", "pastry", "donut",
			"doughnut", "bagel", "cake",
		}},
		{Category: CategoryPub, Priority: 10, Patterns: []string{
			"pub", "brewpub", "taproom", "brasserie", "alehouse", "brewery",
		}},
		{Category: CategoryBar, Priority: 11, Patterns: []string{
			"bar", "tavern", "lounge", "nightclub", "cocktail",
		}},
		{Category: CategoryCafe, Priority: 12, Patterns: []string{
			"cafe", "coffee", "espresso", "tea house", "teahouse",
			"bubble tea", "starbucks", "second cup", "bridgehead",
		}},
		{Category: CategoryFastFood, Priority: 13, Patterns: []string{
			"pizza", "pizzeria", "burger", "shawarma", "poutine", "fries",
			"fried chicken", "taco", "sub", "sandwich", "takeout",
			"take out", "drive thru", "tim hortons", "mcdonald",
			"mcdonalds", "subway", "wendy", "harvey", "kfc", "dairy queen",
		}},
		{Category: CategoryRestaurant, Priority: 14, Patterns: []string{
			"restaurant", "resto", "bistro", "grill", "steakhouse",
			"eatery", "cuisine", "kitchen", "noodle", "sushi", "pho",
			"curry", "bbq", "barbecue",
		}},
	}
}

// compiledRule is a rule with its pattern list folded into one
// word-boundary regex over normalized names.
type compiledRule struct {
	category Category
	priority int
	re       *regexp.Regexp
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		quoted := make([]string, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			p = NormalizeName(p)
			if p == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(p))
		}
		if len(quoted) == 0 {
			continue
		}
		re, err := regexp.Compile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, eris.Wrapf(err, "categorize: compile patterns for %s", r.Category)
		}
		out = append(out, compiledRule{category: r.Category, priority: r.Priority, re: re})
	}
	return out, nil
}

// LoadRules reads a versioned keyword table from YAML. The file replaces
// the default table wholesale.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "categorize: read rule table %s", path)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, eris.Wrapf(err, "categorize: parse rule table %s", path)
	}
	for i, r := range rules {
		if r.Category == "" {
			return nil, eris.Errorf("categorize: rule %d has no category", i)
		}
		if r.Priority <= 0 {
			return nil, eris.Errorf("categorize: rule %d (%s) needs a positive priority", i, r.Category)
		}
	}
	return rules, nil
}
