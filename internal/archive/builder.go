// Package archive composes generated and external documents into a single
// ZIP archive whose entry names are encoded in code page 866.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"

	"github.com/Lllllllleong/docassembly/internal/binding"
	"github.com/Lllllllleong/docassembly/internal/layout"
	"github.com/Lllllllleong/docassembly/internal/models"
)

// Generator produces template-based documents.
type Generator interface {
	Docx(ctx context.Context, src binding.Source, countPages bool) (*models.Document, error)
	PDF(ctx context.Context, src binding.Source, countPages bool) (*models.Document, error)
}

type element struct {
	naming  models.NamingStrategy
	realise func(ctx context.Context) (models.Content, error)
}

// Builder registers archive entries lazily. Nothing is generated until
// Build, which realises the entries in registration order.
type Builder struct {
	gen      Generator
	elements []element
}

func NewBuilder(gen Generator) *Builder {
	return &Builder{gen: gen}
}

func (b *Builder) add(naming models.NamingStrategy, realise func(ctx context.Context) (models.Content, error)) *Builder {
	b.elements = append(b.elements, element{naming: naming, realise: realise})
	return b
}

// Docx generates a .docx from src.
func (b *Builder) Docx(src binding.Source, countPages bool, naming models.NamingStrategy) *Builder {
	return b.add(naming, func(ctx context.Context) (models.Content, error) {
		return b.gen.Docx(ctx, src, countPages)
	})
}

// PDF generates a .docx from src and converts it to PDF.
func (b *Builder) PDF(src binding.Source, countPages bool, naming models.NamingStrategy) *Builder {
	return b.add(naming, func(ctx context.Context) (models.Content, error) {
		return b.gen.PDF(ctx, src, countPages)
	})
}

// RawPDF includes an existing PDF. Its page count is always computed.
func (b *Builder) RawPDF(data []byte, naming models.NamingStrategy) *Builder {
	return b.add(naming, func(context.Context) (models.Content, error) {
		n, err := layout.PageCount(data)
		if err != nil {
			return nil, err
		}
		return models.NewDocumentBytes(data, models.FormatPDF).WithPageCount(n), nil
	})
}

// Zip nests a previously built archive.
func (b *Builder) Zip(a *models.Archive, naming models.NamingStrategy) *Builder {
	return b.add(naming, func(context.Context) (models.Content, error) {
		return a, nil
	})
}

// MergedPDF includes the merge of the PDFs registered by fill.
func (b *Builder) MergedPDF(countPages bool, naming models.NamingStrategy, fill func(*MergedBuilder)) *Builder {
	return b.add(naming, func(ctx context.Context) (models.Content, error) {
		m := NewMergedBuilder(b.gen)
		fill(m)
		return m.Merge(ctx, countPages)
	})
}

// External includes an arbitrary stream.
func (b *Builder) External(r io.Reader, f models.Format, naming models.NamingStrategy) *Builder {
	return b.add(naming, func(context.Context) (models.Content, error) {
		return models.NewContent(r, f), nil
	})
}

// ExternalFile includes a file from disk under its own name.
func (b *Builder) ExternalFile(path string, f models.Format) *Builder {
	return b.add(models.FileBasedName(path), func(context.Context) (models.Content, error) {
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, models.NewMissingResourceError(path, err)
			}
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		return models.NewContent(file, f), nil
	})
}

// Build realises every entry in registration order and packages them. Any
// failure aborts the build.
func (b *Builder) Build(ctx context.Context) (*models.Archive, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	realised := make([]models.Content, 0, len(b.elements))

	for i, el := range b.elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := el.realise(ctx)
		if err != nil {
			return nil, fmt.Errorf("archive entry %d: %w", i+1, err)
		}
		realised = append(realised, c)

		if el.naming == nil {
			c.Close()
			return nil, fmt.Errorf("archive entry %d has no naming strategy", i+1)
		}
		name, err := el.naming.Name(c)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("archive entry %d: %w", i+1, err)
		}
		if err := writeEntry(zw, name, c); err != nil {
			return nil, fmt.Errorf("archive entry %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return models.NewArchive(buf.Bytes(), realised), nil
}

func writeEntry(zw *zip.Writer, name string, c models.Content) error {
	defer c.Close()
	encoded, err := charmap.CodePage866.NewEncoder().String(name)
	if err != nil {
		return fmt.Errorf("name is not representable in CP866: %w", err)
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:    encoded,
		Method:  zip.Deflate,
		NonUTF8: true,
	})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, c); err != nil {
		return err
	}
	return nil
}

// EntryName decodes a CP866 entry name read back from an archive.
func EntryName(f *zip.File) string {
	if !f.NonUTF8 {
		return f.Name
	}
	name, err := charmap.CodePage866.NewDecoder().String(f.Name)
	if err != nil {
		return f.Name
	}
	return name
}
