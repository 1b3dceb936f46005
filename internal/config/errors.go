package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeSyntax indicates a malformed value: unterminated string,
	// wrong bracket, wrong group arity, unparsable expression.
	ErrCodeSyntax ErrorCode = "SYNTAX_ERROR"

	// ErrCodeUnknownAttribute indicates a key outside the recognized set.
	ErrCodeUnknownAttribute ErrorCode = "UNKNOWN_ATTRIBUTE"

	// ErrCodeDuplicateAttribute indicates a key declared more than once.
	ErrCodeDuplicateAttribute ErrorCode = "DUPLICATE_ATTRIBUTE"
)

// Error is a configuration error detected at parse time, before any process
// or directory has been allocated.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Attr names the offending attribute, when known.
	Attr string

	// Pos is the byte offset into the attribute input, when applicable.
	Pos int

	// Token is the offending token text, when applicable.
	Token string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Attr != "" {
		fmt.Fprintf(&b, " (attribute %q)", e.Attr)
	}
	if e.Token != "" {
		fmt.Fprintf(&b, " near %q", e.Token)
	}
	if e.Pos > 0 {
		fmt.Fprintf(&b, " at offset %d", e.Pos)
	}
	return b.String()
}

// IsSyntax reports whether err is a configuration syntax error.
// Uses errors.As to handle wrapped errors.
func IsSyntax(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeSyntax
}

// IsUnknownAttribute reports whether err is an unknown-attribute error.
func IsUnknownAttribute(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeUnknownAttribute
}

// IsDuplicateAttribute reports whether err is a duplicate-attribute error.
func IsDuplicateAttribute(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeDuplicateAttribute
}

func newSyntaxError(pos int, token, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeSyntax,
		Pos:     pos,
		Token:   token,
		Message: fmt.Sprintf(format, args...),
	}
}

func newUnknownAttributeError(pos int, attr string) *Error {
	return &Error{
		Code:    ErrCodeUnknownAttribute,
		Attr:    attr,
		Pos:     pos,
		Message: fmt.Sprintf("unknown attribute %q, valid attributes are %s", attr, strings.Join(ValidAttributes, ", ")),
	}
}

func newDuplicateAttributeError(pos int, attr string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateAttribute,
		Attr:    attr,
		Pos:     pos,
		Message: fmt.Sprintf("attribute %q declared more than once", attr),
	}
}
