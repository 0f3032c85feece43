package extract

import (
	"regexp"
	"strings"
)

var (
	variantMultiSizeRe  = regexp.MustCompile(`(?i)\d+\s*x\s*\d+\s*g\b`)
	variantSingleSizeRe = regexp.MustCompile(`(?i)\b\d+\s*g\b`)
	variantKgSizeRe     = regexp.MustCompile(`(?i)\b\d+\s*kg\b`)
	variantSpaceRe      = regexp.MustCompile(`\s+`)
	variantTrimRe       = regexp.MustCompile(`^[\s\-–]+|[\s\-–]+$`)

	stopWordRes = func() []*regexp.Regexp {
		res := make([]*regexp.Regexp, 0, len(variantStopWords))
		for _, w := range variantStopWords {
			res = append(res, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
		}
		return res
	}()
)

// Variant isolates the flavor descriptor from a full product name by
// stripping the resolved brand, all size patterns, and the stop-word table.
//
//	"MAC's Cat 24x400g - Chicken"           -> "Chicken"
//	"Leonardo All Meat 6x400g Reich an Huhn" -> "Reich an Huhn"
func Variant(fullName, brand, size string) string {
	if fullName == "" {
		return ""
	}
	working := fullName

	if brand != "" {
		brandRe, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(brand))
		if err == nil {
			working = strings.TrimSpace(brandRe.ReplaceAllString(working, ""))
		}
	}

	working = variantMultiSizeRe.ReplaceAllString(working, "")
	working = variantSingleSizeRe.ReplaceAllString(working, "")
	working = variantKgSizeRe.ReplaceAllString(working, "")

	for _, re := range stopWordRes {
		working = re.ReplaceAllString(working, "")
	}

	working = strings.TrimSpace(variantSpaceRe.ReplaceAllString(working, " "))
	working = strings.TrimSpace(variantTrimRe.ReplaceAllString(working, ""))

	// A dash-separated suffix is usually the variant itself.
	if strings.Contains(working, " - ") {
		parts := strings.Split(working, " - ")
		for i := len(parts) - 1; i >= 0; i-- {
			part := strings.TrimSpace(parts[i])
			if len(part) > 1 {
				return part
			}
		}
	}

	if len(working) > 2 && len(working) < 50 {
		return working
	}
	return ""
}
