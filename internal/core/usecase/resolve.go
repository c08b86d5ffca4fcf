package usecase

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

// ResolveCategory maps a free-text model answer onto the configured
// categories. It never invents a category: the result is either a configured
// main category (plus an optional configured sub-category) or unresolved.
func ResolveCategory(logger *slog.Logger, categories domain.Categories, filename, raw string) domain.Decision {
	if logger == nil {
		logger = slog.Default()
	}

	mainPart, subPart, _ := strings.Cut(raw, "/")
	mainPart = strings.TrimSpace(mainPart)
	subPart = strings.TrimSpace(subPart)

	main, ok := matchMain(categories, mainPart)
	if !ok {
		return searchWholeWord(categories, raw)
	}

	decision := domain.Decision{Category: main, Resolved: true}
	if subPart == "" {
		return decision
	}
	for _, sub := range categories.Subcategories(main) {
		if strings.EqualFold(sub, subPart) {
			decision.Subcategory = sub
			return decision
		}
	}

	logger.Warn("subcategory_rejected",
		"filename", filename,
		"subcategory", subPart,
		"category", main,
	)
	decision.RejectedSubcategory = subPart
	return decision
}

func matchMain(categories domain.Categories, candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	if categories.Has(candidate) {
		return candidate, true
	}
	for _, name := range categories.Names() {
		if strings.EqualFold(name, candidate) {
			return name, true
		}
	}
	return "", false
}

// searchWholeWord accepts the answer only when exactly one category name
// appears in it as a whole word.
func searchWholeWord(categories domain.Categories, raw string) domain.Decision {
	var found []string
	for _, name := range categories.Names() {
		if wordPattern(name).MatchString(raw) {
			found = append(found, name)
		}
	}
	if len(found) != 1 {
		return domain.Unresolved()
	}
	return domain.Decision{Category: found[0], Resolved: true}
}

// wordPatterns caches one compiled whole-word matcher per category name.
var wordPatterns sync.Map

func wordPattern(name string) *regexp.Regexp {
	if cached, ok := wordPatterns.Load(name); ok {
		return cached.(*regexp.Regexp)
	}
	pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	actual, _ := wordPatterns.LoadOrStore(name, pattern)
	return actual.(*regexp.Regexp)
}
