package builder

import (
	"sort"

	"golang.org/x/text/language"

	"github.com/angelmondragon/ctp-segment-connector/pkg/commercetools"
)

// localizedValue picks the exact locale first, then the closest language match, else nil.
func localizedValue(values commercetools.LocalizedString, locale string) *string {
	if len(values) == 0 {
		return nil
	}
	if v, ok := values[locale]; ok {
		return &v
	}

	keys := make([]string, 0, len(values))
	tags := make([]language.Tag, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	// sorted so ties resolve the same way on every call
	sort.Strings(keys)

	supported := keys[:0]
	for _, key := range keys {
		tag, err := language.Parse(key)
		if err != nil {
			continue
		}
		supported = append(supported, key)
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil
	}

	want, err := language.Parse(locale)
	if err != nil {
		return nil
	}
	_, idx, confidence := language.NewMatcher(tags).Match(want)
	if confidence == language.No {
		return nil
	}
	v := values[supported[idx]]
	return &v
}
