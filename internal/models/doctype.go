package models

import "strings"

// DocType selects a document-type specific recipe.
type DocType string

const (
	DocTypeCourtOrder DocType = "court_order"
)

var knownDocTypes = []DocType{DocTypeCourtOrder}

// ParseDocType resolves a DocType, ignoring case and surrounding whitespace.
func ParseDocType(s string) (DocType, error) {
	v := strings.TrimSpace(s)
	for _, t := range knownDocTypes {
		if strings.EqualFold(string(t), v) {
			return t, nil
		}
	}
	return "", NewUnknownValueError("document type", v)
}

// Orientation of the sheets produced by an N-up combine.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// PagesPerSheet is 4 (2x2) for Portrait and 2 (1x2) for Landscape.
func (o Orientation) PagesPerSheet() int {
	if o == Landscape {
		return 2
	}
	return 4
}

func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	}
	return Portrait, NewUnknownValueError("orientation", s)
}

// Options tune the court order recipe.
type Options struct {
	NeedCombine   bool  `json:"needCombine"`
	NeedSplit     bool  `json:"needSplit"`
	PagesForSplit []int `json:"pagesForSplit,omitempty"`
}

// StampNecessity controls whether stamp and signature images are placed.
// Only an explicit StampNo suppresses them.
type StampNecessity int

const (
	StampUnset StampNecessity = iota
	StampNo
	StampYes
)

func ParseStampNecessity(s string) StampNecessity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NO", "FALSE":
		return StampNo
	case "YES", "TRUE":
		return StampYes
	}
	return StampUnset
}
