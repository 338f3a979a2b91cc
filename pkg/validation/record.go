package validation

import (
	"strings"
	"unicode/utf8"

	"mq-pipeline-bench/pkg/commtypes"
)

const (
	MinNameLength = 7
	MinCount      = 10
)

const (
	MsgNameLength = "length must be between 7 and 2147483647"
	MsgNameLetter = "Name must contains at least one letter 'A'"
	MsgEddr       = "Invalid eddr number"
	MsgCount      = "Count must be >= 10"
	MsgDate       = "must not be null"
)

// Violation describes one failed predicate of a record.
type Violation struct {
	Field   string
	Message string
	Value   interface{}
}

// ValidName requires at least MinNameLength characters and at least one
// Latin or Cyrillic letter "a" in either case.
func ValidName(name string) bool {
	return validNameLength(name) && containsLetterA(name)
}

func validNameLength(name string) bool {
	return utf8.RuneCountInString(name) >= MinNameLength
}

func containsLetterA(name string) bool {
	return strings.ContainsAny(name, "aAаА")
}

func ValidCount(count int) bool {
	return count >= MinCount
}

// IsValid reports whether every predicate holds. Invalid records are still
// well formed; they are routed to the invalid sink rather than rejected.
func IsValid(r commtypes.Record) bool {
	return ValidName(r.Name) && ValidEddr(r.Eddr) && ValidCount(r.Count) && !r.Date.IsZero()
}

// Violations lists every failed predicate of r, in field order.
func Violations(r commtypes.Record) []Violation {
	var vs []Violation
	if !validNameLength(r.Name) {
		vs = append(vs, Violation{Field: "name", Message: MsgNameLength, Value: r.Name})
	}
	if !containsLetterA(r.Name) {
		vs = append(vs, Violation{Field: "name", Message: MsgNameLetter, Value: r.Name})
	}
	if !ValidEddr(r.Eddr) {
		vs = append(vs, Violation{Field: "eddr", Message: MsgEddr, Value: r.Eddr})
	}
	if !ValidCount(r.Count) {
		vs = append(vs, Violation{Field: "count", Message: MsgCount, Value: r.Count})
	}
	if r.Date.IsZero() {
		vs = append(vs, Violation{Field: "date", Message: MsgDate, Value: nil})
	}
	return vs
}
