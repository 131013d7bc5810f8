package models

import (
	"bytes"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Content is something that can become a file: a single-consumption byte
// stream tagged with a format. Closing it releases the stream.
type Content interface {
	io.ReadCloser
	Format() Format
}

// stream enforces single consumption: once EOF was returned or the stream
// was closed, further reads fail with ErrContentConsumed.
type stream struct {
	r      io.Reader
	format Format
	done   bool
}

func newStream(r io.Reader, f Format) stream {
	return stream{r: r, format: f}
}

func (s *stream) Read(p []byte) (int, error) {
	if s.done {
		return 0, ErrContentConsumed
	}
	n, err := s.r.Read(p)
	if err == io.EOF {
		s.done = true
	}
	return n, err
}

func (s *stream) Close() error {
	s.done = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *stream) Format() Format { return s.format }

// Document is a regular document. Its page count is present only when it
// was explicitly computed.
type Document struct {
	stream
	pageCount *int
}

func NewDocument(r io.Reader, f Format) *Document {
	return &Document{stream: newStream(r, f)}
}

func NewDocumentBytes(b []byte, f Format) *Document {
	return NewDocument(bytes.NewReader(b), f)
}

// WithPageCount records a computed page count and returns the document.
func (d *Document) WithPageCount(n int) *Document {
	d.pageCount = &n
	return d
}

func (d *Document) PageCount() (int, bool) {
	if d.pageCount == nil {
		return 0, false
	}
	return *d.pageCount, true
}

// TextDocument is plain text stored in a specific character encoding.
type TextDocument struct {
	stream
	Charset     encoding.Encoding
	CharsetName string
}

// NewTextDocument encodes text with enc. A nil enc means UTF-8.
func NewTextDocument(text string, enc encoding.Encoding, charsetName string) (*TextDocument, error) {
	if enc == nil {
		enc = unicode.UTF8
		charsetName = "UTF-8"
	}
	encoded, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, err
	}
	return &TextDocument{
		stream:      newStream(bytes.NewReader([]byte(encoded)), FormatTXT),
		Charset:     enc,
		CharsetName: charsetName,
	}, nil
}

// Archive is a packaged container. Elements are the contents it was built
// from; they cannot be read independently once packaged, only the
// archive's own stream is authoritative.
type Archive struct {
	stream
	Elements []Content
}

func NewArchive(b []byte, elements []Content) *Archive {
	return &Archive{stream: newStream(bytes.NewReader(b), FormatZIP), Elements: elements}
}

// externalContent wraps an arbitrary stream supplied by a caller.
type externalContent struct {
	stream
}

// NewContent wraps an arbitrary stream with a format tag.
func NewContent(r io.Reader, f Format) Content {
	return &externalContent{stream: newStream(r, f)}
}

// Drain reads the whole content and closes it.
func Drain(c Content) ([]byte, error) {
	defer c.Close()
	return io.ReadAll(c)
}
