package extractors

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Metadata keys attached to segments by the extractors.
const (
	MetaFileName  = "file_name"
	MetaPageLabel = "page_label"
	MetaSheetName = "sheet_name"
)

// Segment is one unit of extracted text (a PDF page or a spreadsheet sheet)
// together with its provenance metadata.
type Segment struct {
	Text     string
	Metadata map[string]string
}

// Extractor defines the interface for format-specific document readers
type Extractor interface {
	// Load reads the file at path and returns its segments in document order
	Load(path string) ([]Segment, error)

	// SupportedExtensions returns the list of supported file extensions (e.g. ".pdf")
	SupportedExtensions() []string

	// CanExtract checks if the extractor supports the given extension
	CanExtract(extension string) bool
}

// Registry maps file extensions to extractor implementations
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a new registry with the default extractors
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make([]Extractor, 0),
	}

	r.Register(NewPDFExtractor())
	r.Register(NewExcelExtractor())

	return r
}

// Register registers a new extractor
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Supported reports whether some registered extractor handles the extension
func (r *Registry) Supported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range r.extractors {
		if e.CanExtract(ext) {
			return true
		}
	}
	return false
}

// Extensions returns every supported extension, in registration order
func (r *Registry) Extensions() []string {
	var exts []string
	for _, e := range r.extractors {
		exts = append(exts, e.SupportedExtensions()...)
	}
	return exts
}

// Load chooses the appropriate extractor by extension and loads the file
func (r *Registry) Load(path string) ([]Segment, error) {
	ext := strings.ToLower(filepath.Ext(path))

	for _, e := range r.extractors {
		if e.CanExtract(ext) {
			return e.Load(path)
		}
	}

	return nil, fmt.Errorf("no extractor found for extension: %s", ext)
}

func canExtract(extension string, supported []string) bool {
	extension = strings.ToLower(extension)
	for _, ext := range supported {
		if ext == extension {
			return true
		}
	}
	return false
}
