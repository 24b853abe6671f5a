package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func gte(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue >= closedValue
	})
}

// between returns a ParamValidator that checks if the argument lies in [lo, hi].
func between(lo, hi int64) ParamValidator {
	return func(argValue int64) bool {
		return argValue >= lo && argValue <= hi
	}
}

// ParseOptionalGte reads an optional integer query parameter that must be >= value.
// A missing parameter yields def.
func ParseOptionalGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, value int64, def int) (int, bool) {
	return parseValidate(r, w, logger, key, gte(value), def)
}

// ParseOptionalBetween reads an optional integer query parameter bounded by [lo, hi].
// A missing parameter yields def.
func ParseOptionalBetween(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, lo, hi int64, def int) (int, bool) {
	return parseValidate(r, w, logger, key, between(lo, hi), def)
}

func parseValidate(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, pValidator ParamValidator, def int) (int, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || !pValidator(intValue) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	return int(intValue), true
}
