package usecases

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"backoffice/internal/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	minNameLength    = 2
	minCompanyLength = 2
	minTitleLength   = 2
	minSize          = 1
	maxSize          = 99

	ringSizeLow  = 14
	ringSizeHigh = 22

	customBelowPrefix = "custom-menos-"
	customAbovePrefix = "custom-mais-"
)

// NormalizePhone keeps digits only.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < minNameLength {
		return "", entities.NewValidationError("nome", fmt.Sprintf("name must have at least %d characters", minNameLength))
	}
	return name, nil
}

func validateCompany(company string) (string, error) {
	company = strings.TrimSpace(company)
	if utf8.RuneCountInString(company) < minCompanyLength {
		return "", entities.NewValidationError("empresa", fmt.Sprintf("company must have at least %d characters", minCompanyLength))
	}
	return company, nil
}

// validatePhone returns the digits of phone. Brazilian numbers have 10 or 11 digits with area code.
func validatePhone(phone string) (string, error) {
	digits := NormalizePhone(phone)
	if len(digits) < 10 || len(digits) > 11 {
		return "", entities.NewValidationError("whatsapp", "phone must have 10 or 11 digits")
	}
	return digits, nil
}

func validateClientID(id int64) error {
	if id <= 0 {
		return entities.NewValidationError("id", "client id must be a positive integer")
	}
	return nil
}

func validateProductID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return entities.NewValidationError("id", "invalid product id")
	}
	return nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < minTitleLength {
		return "", entities.NewValidationError("titulo", fmt.Sprintf("title must have at least %d characters", minTitleLength))
	}
	return title, nil
}

// dotThousands matches Brazilian grouping without decimals: "1.299", "12.500.000".
var dotThousands = regexp.MustCompile(`^[1-9]\d{0,2}(\.\d{3})+$`)

// NormalizePrice accepts "89.9", "89,90", "1.299" or "1.299,90" and returns the
// canonical "89.90". More than two decimal places is rejected, never rounded.
func NormalizePrice(price string) (string, error) {
	raw := strings.TrimSpace(price)
	raw = strings.TrimPrefix(raw, "R$")
	raw = strings.TrimSpace(raw)
	switch {
	case strings.Contains(raw, ","):
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	case dotThousands.MatchString(raw):
		raw = strings.ReplaceAll(raw, ".", "")
	}
	if raw == "" {
		return "", entities.NewValidationError("valor", "price is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", entities.NewValidationError("valor", "price must be a number")
	}
	if d.IsNegative() {
		return "", entities.NewValidationError("valor", "price cannot be negative")
	}
	if d.Exponent() < -2 {
		return "", entities.NewValidationError("valor", "price accepts at most two decimal places")
	}
	return d.StringFixed(2), nil
}

func normalizeSizeKind(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case entities.SizeKindRing, "ring":
		return entities.SizeKindRing, nil
	case entities.SizeKindCentimeters, "centimeters":
		return entities.SizeKindCentimeters, nil
	}
	return "", entities.NewValidationError("tipo_tamanho", "size kind must be anel or cm")
}

// NormalizeSize validates size for kind. Bucketed labels from the edit form
// ("custom-menos-12", "custom-mais-25") are stored as the bare number.
func NormalizeSize(kind, size string) (string, error) {
	raw := strings.TrimSpace(size)
	raw = strings.TrimPrefix(raw, customBelowPrefix)
	raw = strings.TrimPrefix(raw, customAbovePrefix)
	raw = strings.ReplaceAll(raw, ",", ".")
	if raw == "" {
		return "", entities.NewValidationError("tamanho", "size is required")
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", entities.NewValidationError("tamanho", "size must be a number")
	}
	if d.LessThan(decimal.NewFromInt(minSize)) || d.GreaterThan(decimal.NewFromInt(maxSize)) {
		return "", entities.NewValidationError("tamanho", fmt.Sprintf("size must be between %d and %d", minSize, maxSize))
	}

	switch kind {
	case entities.SizeKindRing:
		if !d.IsInteger() {
			return "", entities.NewValidationError("tamanho", "ring size must be a whole number")
		}
		return d.StringFixed(0), nil
	default:
		if !d.Equal(d.Truncate(1)) {
			return "", entities.NewValidationError("tamanho", "size in cm accepts one decimal place")
		}
		return d.Truncate(1).String(), nil
	}
}

// DisplaySize returns the label the edit form expects: ring sizes outside
// 14-22 are bucketed as custom-menos-N / custom-mais-N.
func DisplaySize(kind, size string) string {
	if kind != entities.SizeKindRing {
		return size
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(size), 64)
	if err != nil {
		return size
	}
	switch {
	case n < ringSizeLow:
		return customBelowPrefix + size
	case n > ringSizeHigh:
		return customAbovePrefix + size
	}
	return size
}

func normalizeStatus(status string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch s {
	case "":
		return entities.ProductStatusActivated, nil
	case entities.ProductStatusActivated, "ATIVO", "ACTIVATED":
		return entities.ProductStatusActivated, nil
	case entities.ProductStatusDeactivated, "INATIVO", "DEACTIVATED":
		return entities.ProductStatusDeactivated, nil
	}
	return "", entities.NewValidationError("status", "status must be ATIVADO or DESATIVADO")
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
