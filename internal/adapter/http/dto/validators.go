package dto

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

// maxAmountDigits bounds the textual size of decimal amounts.
const maxAmountDigits = 40

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("amount", validateAmount)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateAmount accepts non-negative decimal strings without exponent.
func validateAmount(fl validator.FieldLevel) bool {
	return isAmount(fl.Field().String())
}

func isAmount(raw string) bool {
	if raw == "" || len(raw) > maxAmountDigits || strings.ContainsAny(raw, "eE") {
		return false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return false
	}
	return !d.IsNegative()
}

// Normalize trims free-text fields and drops control characters from every
// exported string or *string field of a struct pointer. Signed payloads must
// not pass through it: the signature covers the raw bytes.
func Normalize(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		if f.Kind() == reflect.Ptr && !f.IsNil() {
			f = f.Elem()
		}
		if f.Kind() == reflect.String {
			f.SetString(normalizeText(f.String()))
		}
	}
}

func normalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
