package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// parseDOCX extracts text from a Word archive. Paragraph text comes first in
// document order; table cell text is appended afterwards, one row per line.
func parseDOCX(fileContent []byte, filename string) (*Document, error) {
	reader, err := zip.NewReader(bytes.NewReader(fileContent), int64(len(fileContent)))
	if err != nil {
		return nil, fmt.Errorf("parse docx %s: %w", filename, err)
	}
	var document io.ReadCloser
	for _, file := range reader.File {
		if file.Name == "word/document.xml" {
			document, err = file.Open()
			if err != nil {
				return nil, fmt.Errorf("parse docx %s: %w", filename, err)
			}
			break
		}
	}
	if document == nil {
		return nil, fmt.Errorf("parse docx %s: word/document.xml missing", filename)
	}
	defer document.Close()

	body, tables, paragraphs, tableCount, err := extractWordXML(document)
	if err != nil {
		return nil, fmt.Errorf("parse docx %s: %w", filename, err)
	}
	content := body
	if tables != "" {
		content += "\n" + tables
	}
	return &Document{
		Content:  content,
		DocType:  DetectDocType(content),
		Sections: ExtractSections(content),
		Metadata: map[string]string{
			"filename":   filename,
			"paragraphs": fmt.Sprintf("%d", paragraphs),
			"tables":     fmt.Sprintf("%d", tableCount),
			"format":     "docx",
		},
	}, nil
}

// extractWordXML walks the document token stream. Runs of w:t character data
// accumulate into the current paragraph; w:p closes paragraphs, w:tbl scopes
// route text into the table buffer with rows separated by newlines.
func extractWordXML(r io.Reader) (body, tables string, paragraphs, tableCount int, err error) {
	decoder := xml.NewDecoder(r)
	var bodyBuf, tableBuf, current strings.Builder
	tableDepth := 0
	inText := false

	flushParagraph := func() {
		text := strings.TrimRight(current.String(), " ")
		current.Reset()
		if tableDepth > 0 {
			if text != "" {
				tableBuf.WriteString(text)
				tableBuf.WriteString(" ")
			}
			return
		}
		bodyBuf.WriteString(text)
		bodyBuf.WriteString("\n")
		paragraphs++
	}

	for {
		token, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", "", 0, 0, tokenErr
		}
		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					tableCount++
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				flushParagraph()
			case "tbl":
				tableDepth--
			case "tr":
				if tableDepth > 0 {
					tableBuf.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}
	return bodyBuf.String(), strings.TrimRight(tableBuf.String(), " \n"), paragraphs, tableCount, nil
}
