package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/docx"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// RequestTag is the modifier and renderer tag of documents built from a
// GenerateRequest.
const RequestTag = "request"

// RequestSource adapts a decoded GenerateRequest to a binding.Source.
type RequestSource struct {
	fields binding.Fields
	tables []models.TableData
	lists  []models.ListData
}

// NewRequestSource builds the field map of req. Scalars and images are
// declared in name order so that output does not depend on map iteration.
func NewRequestSource(req *models.GenerateRequest, template []byte, images map[string][]byte) *RequestSource {
	f := binding.Fields{
		Template: template,
		Stamp:    models.ParseStampNecessity(req.Stamp),
	}
	for _, name := range sortedKeys(req.Fields) {
		f.Text(name, req.Fields[name])
	}
	for _, name := range sortedKeys(images) {
		f.Picture(name, "", images[name])
	}
	return &RequestSource{fields: f, tables: req.Tables, lists: req.Lists}
}

func (s *RequestSource) Tag() string { return RequestTag }

func (s *RequestSource) Fields() binding.Fields { return s.fields }

// RequestModifier registers the tables and lists carried by a RequestSource.
var RequestModifier = binding.ModifierFunc(func(c *binding.Context, src binding.Source) error {
	rs, ok := src.(*RequestSource)
	if !ok {
		return fmt.Errorf("request modifier expects *RequestSource, got %T", src)
	}
	for _, t := range rs.tables {
		binding.Table(c, t.Name, t.Rows, func(r *binding.RowContext, row []string) {
			for _, v := range row {
				r.Cell(v)
			}
		})
	}
	for _, l := range rs.lists {
		binding.List(c, l.Name, l.Items, func(_ *binding.ListContext, item string, p *docx.Paragraph) {
			p.AddRun(item)
		})
	}
	return nil
})

// RequestRenderer renders a RequestSource as plain text: the template is
// read as UTF-8 and its ${name} placeholders are replaced by scalars.
var RequestRenderer = binding.TextRendererFunc(func(src binding.Source) (*models.TextDocument, error) {
	f := src.Fields()
	pairs := make([]string, 0, 2*len(f.Scalars))
	for _, s := range f.Scalars {
		pairs = append(pairs, "${"+s.Name+"}", s.Value)
	}
	return models.NewTextDocument(strings.NewReplacer(pairs...).Replace(string(f.Template)), nil, "")
})

// NewRequestRegistries returns the registries the generator runs with.
func NewRequestRegistries() (*binding.ModifierRegistry, *binding.RendererRegistry) {
	return binding.NewModifierRegistry().Register(RequestTag, RequestModifier),
		binding.NewRendererRegistry().Register(RequestTag, RequestRenderer)
}

// EntryNaming names an archive entry. A name containing %d is filled with
// the page count of the entry.
func EntryNaming(name string) models.NamingStrategy {
	if strings.Contains(name, "%d") {
		return models.PageCountName(func(n int) string { return fmt.Sprintf(name, n) })
	}
	return models.ConstantName(name)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
