package binding

import (
	"fmt"

	"github.com/Lllllllleong/docassembly/internal/models"
)

// Modifier adjusts a context before generation, typically by registering
// the tables and lists of its document type.
type Modifier interface {
	Modify(c *Context, src Source) error
}

// ModifierFunc adapts a function to Modifier.
type ModifierFunc func(c *Context, src Source) error

func (f ModifierFunc) Modify(c *Context, src Source) error { return f(c, src) }

// TextRenderer produces a plain-text document without a template.
type TextRenderer interface {
	Render(src Source) (*models.TextDocument, error)
}

// TextRendererFunc adapts a function to TextRenderer.
type TextRendererFunc func(src Source) (*models.TextDocument, error)

func (f TextRendererFunc) Render(src Source) (*models.TextDocument, error) { return f(src) }

// ModifierRegistry maps document tags to modifiers. It is populated at
// startup and read-only afterwards.
type ModifierRegistry struct {
	modifiers map[string]Modifier
}

func NewModifierRegistry() *ModifierRegistry {
	return &ModifierRegistry{modifiers: make(map[string]Modifier)}
}

func (r *ModifierRegistry) Register(tag string, m Modifier) *ModifierRegistry {
	r.modifiers[tag] = m
	return r
}

func (r *ModifierRegistry) Lookup(tag string) (Modifier, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.modifiers[tag]
	return m, ok
}

// RendererRegistry maps document tags to text renderers.
type RendererRegistry struct {
	renderers map[string]TextRenderer
}

func NewRendererRegistry() *RendererRegistry {
	return &RendererRegistry{renderers: make(map[string]TextRenderer)}
}

func (r *RendererRegistry) Register(tag string, tr TextRenderer) *RendererRegistry {
	r.renderers[tag] = tr
	return r
}

// Render looks up the renderer registered for the source's tag.
func (r *RendererRegistry) Render(src Source) (*models.TextDocument, error) {
	var tr TextRenderer
	if r != nil {
		tr = r.renderers[src.Tag()]
	}
	if tr == nil {
		return nil, models.NewUnknownValueError("text renderer", src.Tag())
	}
	doc, err := tr.Render(src)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", src.Tag(), err)
	}
	return doc, nil
}

// GenerateDocx fills the source's template, applying the modifier
// registered for its tag if any.
func GenerateDocx(src Source, modifiers *ModifierRegistry) ([]byte, error) {
	fields := src.Fields()
	if len(fields.Template) == 0 {
		return nil, fmt.Errorf("document %s has no template", src.Tag())
	}
	c, err := NewContext(fields.Template, fields)
	if err != nil {
		return nil, err
	}
	if m, ok := modifiers.Lookup(src.Tag()); ok {
		if err := m.Modify(c, src); err != nil {
			return nil, fmt.Errorf("modifier for %s failed: %w", src.Tag(), err)
		}
	}
	return c.Render()
}
