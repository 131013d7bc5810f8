package models

// These structs define the JSON payloads accepted and returned by the
// HTTP document generator.

// TableData is the content of one dynamic table: rows of cell values.
type TableData struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// ListData is the content of one dynamic list: one paragraph per item.
type ListData struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// ArchiveEntry describes one element of a zip output.
type ArchiveEntry struct {
	// Kind is one of "docx", "pdf", "external".
	Kind string `json:"kind"`
	// Name is the base name; a name containing "%d" is filled with the page count.
	Name       string `json:"name"`
	CountPages bool   `json:"countPages,omitempty"`
	// Object is a GCS object in the template bucket, used by "external".
	Object string `json:"object,omitempty"`
}

// GenerateRequest is the input for the GenerateDocument function.
// With a DocType the recipe of that type runs on SourceObject; with a
// SourcePrefix the PDFs under it are merged in name order.
type GenerateRequest struct {
	DocType        string            `json:"docType,omitempty"`
	Format         string            `json:"format"`
	TemplateObject string            `json:"templateObject,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
	Images         map[string]string `json:"images,omitempty"`
	Tables         []TableData       `json:"tables,omitempty"`
	Lists          []ListData        `json:"lists,omitempty"`
	Stamp          string            `json:"stamp,omitempty"`
	CountPages     bool              `json:"countPages,omitempty"`
	Archive        []ArchiveEntry    `json:"archive,omitempty"`
	SourcePrefix   string            `json:"sourcePrefix,omitempty"`
	SourceObject   string            `json:"sourceObject,omitempty"`
	Options        Options           `json:"options,omitempty"`
	Orientation    string            `json:"orientation,omitempty"`
	OutputName     string            `json:"outputName,omitempty"`
}

// GenerateResponse is the output of the GenerateDocument function.
type GenerateResponse struct {
	Status       string `json:"status"`
	JobID        string `json:"jobId"`
	OutputGCSUri string `json:"outputGcsUri,omitempty"`
	PageCount    int    `json:"pageCount,omitempty"`
	Error        string `json:"error,omitempty"`
}
