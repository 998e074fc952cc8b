// Package query builds safe, parameterized SQL predicates from client-supplied
// field/value pairs. Filterable fields are declared up front in a static
// Schema; anything not declared is rejected. Building a predicate performs
// no I/O.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"blogapi/internal/common"
	"blogapi/internal/server/models"
)

// FieldKind selects the clause semantics for a filterable field.
type FieldKind int

const (
	// KindText matches by prefix (LIKE value%).
	KindText FieldKind = iota
	// KindStatus matches a BlogStatus enum member by equality. Values that
	// do not parse are a client error, not matched-nothing.
	KindStatus
	// KindID matches a numeric identifier by equality. Non-numeric values
	// are a client error, not matched-nothing.
	KindID
	// KindExact matches the raw string value by equality.
	KindExact
)

// Schema maps exposed (camelCase) field names to their clause semantics.
// It replaces runtime struct introspection with an explicit whitelist.
type Schema map[string]FieldKind

// BlogPostSchema lists the fields clients may filter blog posts by.
func BlogPostSchema() Schema {
	return Schema{
		"title":    KindText,
		"content":  KindText,
		"authorId": KindID,
		"status":   KindStatus,
	}
}

// UserSchema lists the fields clients may filter user listings by.
func UserSchema() Schema {
	return Schema{
		"firstName": KindText,
		"lastName":  KindText,
		"username":  KindExact,
		"email":     KindExact,
	}
}

// Predicate is a conjunctive WHERE fragment with positional args, ready to be
// executed by a repository. An empty Where matches everything.
type Predicate struct {
	Where string
	Args  []any
}

// Build validates params against the schema and assembles a Predicate.
// Clauses are ANDed; there is no grouping or OR. Parameters are processed in
// sorted key order so the output is deterministic.
//
// Unknown keys return InvalidParameterError, unparseable enum or id values
// return InvalidValueError; both unwrap to common.ErrorInvalidInput.
func Build(params map[string]string, schema Schema) (Predicate, error) {
	if len(params) == 0 {
		return Predicate{}, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any

	for _, key := range keys {
		kind, ok := schema[key]
		if !ok {
			return Predicate{}, &common.InvalidParameterError{Param: key}
		}

		value := strings.TrimSpace(params[key])
		column := camelToSnake(key)

		switch kind {
		case KindStatus:
			status, ok := models.ParseBlogStatus(value)
			if !ok {
				return Predicate{}, &common.InvalidValueError{Field: key, Value: value}
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)+1))
			args = append(args, string(status))
		case KindID:
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Predicate{}, &common.InvalidValueError{Field: key, Value: value}
			}
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)+1))
			args = append(args, id)
		case KindExact:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)+1))
			args = append(args, value)
		default:
			clauses = append(clauses, fmt.Sprintf("%s LIKE $%d", column, len(args)+1))
			args = append(args, value+"%")
		}
	}

	return Predicate{Where: strings.Join(clauses, " AND "), Args: args}, nil
}

// camelToSnake translates an exposed field name into the store's column
// naming convention, e.g. "authorId" -> "author_id".
func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
