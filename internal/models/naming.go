package models

import (
	"os"
	"path/filepath"
)

// NamingStrategy computes the archive entry name of a realised content.
type NamingStrategy interface {
	Name(c Content) (string, error)
}

// ConstantName names every content "<name>.<ext>".
type ConstantName string

func (n ConstantName) Name(c Content) (string, error) {
	return string(n) + c.Format().Extension(), nil
}

// PageCountName derives the base name from the document's page count.
type PageCountName func(pageCount int) string

func (fn PageCountName) Name(c Content) (string, error) {
	doc, ok := c.(*Document)
	if !ok {
		return "", &MissingPageCountError{}
	}
	n, ok := doc.PageCount()
	if !ok {
		return "", &MissingPageCountError{}
	}
	return fn(n) + c.Format().Extension(), nil
}

// FileBasedName copies the name of a file on disk.
type FileBasedName string

func (p FileBasedName) Name(Content) (string, error) {
	if _, err := os.Stat(string(p)); err != nil {
		return "", NewMissingResourceError(string(p), err)
	}
	return filepath.Base(string(p)), nil
}
