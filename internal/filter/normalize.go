package filter

import (
	"github.com/PuerkitoBio/purell"
)

// URL normalization flag rules. Two spellings of the same URL must collapse to
// one key before aggregation.
const normalizationFlags purell.NormalizationFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveWWW |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveEmptyPortSeparator |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveFragment

// NormalizeURL returns the deduplication form of an admissible URL.
func NormalizeURL(raw string) (string, error) {
	return purell.NormalizeURLString(raw, normalizationFlags)
}
