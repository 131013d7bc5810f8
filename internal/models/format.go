package models

import (
	"path/filepath"
	"strings"
)

// Format identifies the on-disk representation of a piece of content.
type Format int

const (
	FormatNone Format = iota
	FormatDOCX
	FormatXLSX
	FormatXLS
	FormatPDF
	FormatTXT
	FormatZIP
	FormatPNG
	FormatJPEG
	FormatXML
	FormatCSV
)

var formatExtensions = map[Format]string{
	FormatNone: "",
	FormatDOCX: "docx",
	FormatXLSX: "xlsx",
	FormatXLS:  "xls",
	FormatPDF:  "pdf",
	FormatTXT:  "txt",
	FormatZIP:  "zip",
	FormatPNG:  "png",
	FormatJPEG: "jpeg",
	FormatXML:  "xml",
	FormatCSV:  "csv",
}

var formatContentTypes = map[Format]string{
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatXLS:  "application/vnd.ms-excel",
	FormatPDF:  "application/pdf",
	FormatTXT:  "text/plain",
	FormatZIP:  "application/zip",
	FormatPNG:  "image/png",
	FormatJPEG: "image/jpeg",
	FormatXML:  "application/xml",
	FormatCSV:  "text/csv",
}

// String returns the file extension without the leading dot.
func (f Format) String() string {
	return formatExtensions[f]
}

// Extension returns ".ext", or "" for FormatNone.
func (f Format) Extension() string {
	if f == FormatNone {
		return ""
	}
	return "." + f.String()
}

// ContentType is the MIME type used when the content is uploaded.
func (f Format) ContentType() string {
	if ct, ok := formatContentTypes[f]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ParseFormat resolves a format from its extension, ignoring case and
// surrounding whitespace. "none" and "" both map to FormatNone.
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "none" {
		return FormatNone, nil
	}
	if v == "jpg" {
		return FormatJPEG, nil
	}
	for f, ext := range formatExtensions {
		if ext == v {
			return f, nil
		}
	}
	return FormatNone, NewUnknownValueError("document format", s)
}

// FormatFromPath resolves a format from the extension of a file path.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}
