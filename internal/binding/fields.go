// Package binding fills .docx and .xlsx templates from explicit field maps.
package binding

import "github.com/Lllllllleong/docassembly/internal/models"

// TemplateField is the reserved name of the field holding the template
// itself; it is never placed as an image.
const TemplateField = "template"

// ImageKind decides the size an image is placed at.
type ImageKind string

const (
	ImageSign      ImageKind = "sign"
	ImageStamp     ImageKind = "stamp"
	ImageSignStamp ImageKind = "signStamp"
)

// Pixels is the edge length of the square the image is drawn in.
func (k ImageKind) Pixels() int {
	if k == ImageSign {
		return 100
	}
	return 150
}

// Scalar is a named text value substituted for ${Name}.
type Scalar struct {
	Name  string
	Value string
}

// Image is a named PNG placed where ${Name} appears. An empty Kind is
// derived from the name.
type Image struct {
	Name string
	Kind ImageKind
	Data []byte
}

func (i Image) kind() ImageKind {
	if i.Kind != "" {
		return i.Kind
	}
	return ImageKind(i.Name)
}

// Fields is the statically declared field map of a generated document.
type Fields struct {
	Template []byte
	Scalars  []Scalar
	Images   []Image
	Stamp    models.StampNecessity
}

// Text appends a scalar field.
func (f *Fields) Text(name, value string) *Fields {
	f.Scalars = append(f.Scalars, Scalar{Name: name, Value: value})
	return f
}

// Picture appends an image field.
func (f *Fields) Picture(name string, kind ImageKind, png []byte) *Fields {
	f.Images = append(f.Images, Image{Name: name, Kind: kind, Data: png})
	return f
}

// Source is implemented by every generated document type. Tag selects the
// modifier and text renderer registered for the type.
type Source interface {
	Tag() string
	Fields() Fields
}
