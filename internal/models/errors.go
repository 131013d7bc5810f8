package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrContentConsumed is returned when a content stream is read after it
// was drained or closed.
var ErrContentConsumed = errors.New("content stream already consumed")

// TemplateStructureError reports an anchor table or paragraph that is
// missing from a template.
type TemplateStructureError struct {
	Kind string
	Name string
}

func NewTemplateStructureError(kind, name string) *TemplateStructureError {
	return &TemplateStructureError{Kind: kind, Name: name}
}

func (e *TemplateStructureError) Error() string {
	return fmt.Sprintf("%s [%s] not found in template", e.Kind, e.Name)
}

// TemplateValidationError lists the placeholders left unresolved after binding.
type TemplateValidationError struct {
	Tokens []string
}

func NewTemplateValidationError(tokens []string) *TemplateValidationError {
	return &TemplateValidationError{Tokens: tokens}
}

func (e *TemplateValidationError) Error() string {
	return "unresolved template placeholders: " + strings.Join(e.Tokens, ", ")
}

// UnsupportedFormatError reports an operation requested for a format with
// no rule defined.
type UnsupportedFormatError struct {
	Format Format
	Op     string
}

func NewUnsupportedFormatError(op string, f Format) *UnsupportedFormatError {
	return &UnsupportedFormatError{Format: f, Op: op}
}

func (e *UnsupportedFormatError) Error() string {
	name := e.Format.String()
	if name == "" {
		name = "none"
	}
	return fmt.Sprintf("%s is not supported for format %q", e.Op, name)
}

// MissingPageCountError is returned by naming strategies that need a page
// count which was never computed.
type MissingPageCountError struct{}

func (e *MissingPageCountError) Error() string {
	return "file name requires a computed page count"
}

// ConversionExhaustedError is returned once the conversion retry budget is
// spent. It unwraps to the last failure.
type ConversionExhaustedError struct {
	Attempts int
	Err      error
}

func NewConversionExhaustedError(attempts int, err error) *ConversionExhaustedError {
	return &ConversionExhaustedError{Attempts: attempts, Err: err}
}

func (e *ConversionExhaustedError) Error() string {
	return fmt.Sprintf("conversion failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConversionExhaustedError) Unwrap() error { return e.Err }

// MissingResourceError reports a referenced filesystem resource that does
// not exist.
type MissingResourceError struct {
	Path string
	Err  error
}

func NewMissingResourceError(path string, err error) *MissingResourceError {
	return &MissingResourceError{Path: path, Err: err}
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("file %s is missing: %v", e.Path, e.Err)
}

func (e *MissingResourceError) Unwrap() error { return e.Err }

// UnknownValueError is returned when parsing an enum-like value fails.
type UnknownValueError struct {
	Kind  string
	Value string
}

func NewUnknownValueError(kind, value string) *UnknownValueError {
	return &UnknownValueError{Kind: kind, Value: value}
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Kind, e.Value)
}
