package http

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"backoffice/internal/entities"

	"github.com/gin-gonic/gin"
)

// Input validation constants
const (
	MaxTextLength        = 256
	MaxDescriptionLength = 5000
)

// SanitizeString removes null bytes and control characters
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString safely truncates a string to max runes
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

func cleanText(s string, maxLen int) string {
	return TruncateString(SanitizeString(s), maxLen)
}

func cleanPtr(s *string, maxLen int) *string {
	if s == nil {
		return nil
	}
	v := cleanText(*s, maxLen)
	return &v
}

// parsePagination reads page and limit; bad values fall back to defaults.
func parsePagination(c *gin.Context) entities.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return entities.Pagination{Page: page, Limit: limit}.Normalize()
}

func parseClientID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, entities.NewValidationError("id", "client id must be a positive integer")
	}
	return id, nil
}
