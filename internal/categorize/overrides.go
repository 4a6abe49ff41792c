package categorize

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Overrides maps normalized establishment names to their curated
// category. The table corrects known misclassifications and therefore
// outranks every other stage.
type Overrides map[string]Category

// DefaultOverrides returns the empty table. Unlike rules, there is no
// sensible built-in correction list; overrides only come from the
// curated file.
func DefaultOverrides() Overrides {
	return Overrides{}
}

// LoadOverrides reads the manual override table from YAML, one
// `name: category` entry per line. Keys are normalized with the same
// folding applied to lookups, so the file can use display spellings.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "categorize: read override table %s", path)
	}
	var raw map[string]Category
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "categorize: parse override table %s", path)
	}
	out := make(Overrides, len(raw))
	for name, cat := range raw {
		key := NormalizeName(name)
		if key == "" {
			continue
		}
		if cat == "" {
			return nil, eris.Errorf("categorize: override %q has no category", name)
		}
		out[key] = cat
	}
	return out, nil
}
