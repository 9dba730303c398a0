package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nutrilog/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
	htmlTagRegex        = regexp.MustCompile(`<[^>]*>`)
)

// maxDescriptionLength bounds the trimmed description, in characters.
const maxDescriptionLength = 200

// NormalizeKey derives the cache key from a raw food description:
// lowercased, trimmed, internal whitespace runs collapsed to single
// spaces. Descriptions differing only in case or incidental whitespace
// share a cache entry.
func NormalizeKey(description string) string {
	key := strings.ToLower(description)
	key = multipleSpacesRegex.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}

// validateDescription rejects inputs before any estimator call: empty or
// all-whitespace, over-long, or containing HTML-tag-like content that
// could be rendered elsewhere.
func validateDescription(description string) error {
	trimmed := strings.TrimSpace(description)

	if trimmed == "" {
		return domain.NewValidationError("description", "description is required")
	}
	if utf8.RuneCountInString(trimmed) > maxDescriptionLength {
		return domain.NewValidationError("description", "description too long (max 200 characters)")
	}
	if htmlTagRegex.MatchString(description) {
		return domain.NewValidationError("description", "description contains invalid characters")
	}

	return nil
}
