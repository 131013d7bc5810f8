package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
)

type extendedProperties struct {
	Pages int `xml:"Pages"`
}

// PageCount returns the page count declared in the extended document
// properties (docProps/app.xml) of a .docx package.
func PageCount(data []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to open docx archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != appPropsPart {
			continue
		}
		raw, err := readZipFile(f)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", appPropsPart, err)
		}
		var props extendedProperties
		if err := xml.Unmarshal(raw, &props); err != nil {
			return 0, fmt.Errorf("failed to parse %s: %w", appPropsPart, err)
		}
		return props.Pages, nil
	}
	return 0, fmt.Errorf("docx has no %s", appPropsPart)
}
