package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// parseXLSX extracts cell text from a spreadsheet archive: one line per row,
// cells joined with a single space, worksheets in file order. Discovery
// inventories commonly arrive as spreadsheets.
func parseXLSX(fileContent []byte, filename string) (*Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(fileContent), int64(len(fileContent)))
	if err != nil {
		return nil, fmt.Errorf("parse xlsx %s: %w", filename, err)
	}

	shared, err := readSharedStrings(reader)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx %s: %w", filename, err)
	}

	var sheetNames []string
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "xl/worksheets/sheet") && strings.HasSuffix(file.Name, ".xml") {
			sheetNames = append(sheetNames, file.Name)
		}
	}
	sort.Strings(sheetNames)
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("parse xlsx %s: no worksheets", filename)
	}

	var content strings.Builder
	for _, name := range sheetNames {
		for _, file := range reader.File {
			if file.Name != name {
				continue
			}
			sheet, err := file.Open()
			if err != nil {
				return nil, fmt.Errorf("parse xlsx %s: %w", filename, err)
			}
			text, err := extractSheetXML(sheet, shared)
			sheet.Close()
			if err != nil {
				return nil, fmt.Errorf("parse xlsx %s: %w", filename, err)
			}
			content.WriteString(text)
		}
	}

	text := content.String()
	return &Document{
		Content:  text,
		DocType:  DetectDocType(text),
		Sections: ExtractSections(text),
		Metadata: map[string]string{
			"filename": filename,
			"sheets":   fmt.Sprintf("%d", len(sheetNames)),
			"format":   "xlsx",
		},
	}, nil
}

// readSharedStrings loads xl/sharedStrings.xml, one entry per si element
// with all contained text runs concatenated. Workbooks without shared
// strings are valid.
func readSharedStrings(reader *zip.Reader) ([]string, error) {
	for _, file := range reader.File {
		if file.Name != "xl/sharedStrings.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		decoder := xml.NewDecoder(rc)
		var shared []string
		var current strings.Builder
		inEntry, inText := false, false
		for {
			token, err := decoder.Token()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			switch el := token.(type) {
			case xml.StartElement:
				switch el.Name.Local {
				case "si":
					inEntry = true
					current.Reset()
				case "t":
					inText = true
				}
			case xml.EndElement:
				switch el.Name.Local {
				case "si":
					inEntry = false
					shared = append(shared, current.String())
				case "t":
					inText = false
				}
			case xml.CharData:
				if inEntry && inText {
					current.Write(el)
				}
			}
		}
		return shared, nil
	}
	return nil, nil
}

// extractSheetXML renders one worksheet as text. Cells with t="s" resolve
// through the shared string table; other cells use their raw value.
func extractSheetXML(r io.Reader, shared []string) (string, error) {
	decoder := xml.NewDecoder(r)
	var out strings.Builder
	var row []string
	var value strings.Builder
	cellType := ""
	inValue := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "row":
				row = row[:0]
			case "c":
				cellType = ""
				for _, attr := range el.Attr {
					if attr.Name.Local == "t" {
						cellType = attr.Value
					}
				}
			case "v", "is":
				inValue = true
				value.Reset()
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "v", "is":
				inValue = false
				cell := value.String()
				if cellType == "s" {
					if idx, ok := sharedIndex(cell, len(shared)); ok {
						cell = shared[idx]
					}
				}
				if cell = strings.TrimSpace(cell); cell != "" {
					row = append(row, cell)
				}
			case "row":
				if len(row) > 0 {
					out.WriteString(strings.Join(row, " "))
					out.WriteString("\n")
				}
			}
		case xml.CharData:
			if inValue {
				value.Write(el)
			}
		}
	}
	return out.String(), nil
}

func sharedIndex(raw string, limit int) (int, bool) {
	idx := 0
	if _, err := fmt.Sscanf(raw, "%d", &idx); err != nil {
		return 0, false
	}
	if idx < 0 || idx >= limit {
		return 0, false
	}
	return idx, true
}
