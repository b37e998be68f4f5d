package ingest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	pdfStream = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	// Literal string operands of the Tj / TJ / ' show-text operators.
	pdfShowText = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|')`)
	pdfShowArr  = regexp.MustCompile(`\[((?:[^\[\]\\]|\\.)*)\]\s*TJ`)
	pdfLiteral  = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	pdfPageObj  = []byte("/Type /Page")
)

// parsePDF performs best-effort text extraction: content streams are
// inflated when Flate-compressed and the literal operands of the show-text
// operators are collected. Encrypted documents and exotic encodings yield no
// text and are reported as a parse error so the caller can ask for a
// different format.
func parsePDF(fileContent []byte, filename string) (*Document, error) {
	if !bytes.HasPrefix(fileContent, []byte("%PDF-")) {
		return nil, fmt.Errorf("parse pdf %s: missing %%PDF header", filename)
	}

	var text strings.Builder
	for _, match := range pdfStream.FindAllSubmatch(fileContent, -1) {
		data := match[1]
		if inflated, err := inflate(data); err == nil {
			data = inflated
		}
		extractShowText(&text, data)
	}

	content := text.String()
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("parse pdf %s: no extractable text", filename)
	}
	return &Document{
		Content:  content,
		DocType:  DetectDocType(content),
		Sections: ExtractSections(content),
		Metadata: map[string]string{
			"filename": filename,
			"pages":    fmt.Sprintf("%d", bytes.Count(fileContent, pdfPageObj)),
			"format":   "pdf",
		},
	}, nil
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func extractShowText(out *strings.Builder, data []byte) {
	for _, match := range pdfShowText.FindAllSubmatch(data, -1) {
		out.WriteString(decodePDFString(string(match[1])))
		out.WriteString("\n")
	}
	for _, match := range pdfShowArr.FindAllSubmatch(data, -1) {
		var line strings.Builder
		for _, lit := range pdfLiteral.FindAllSubmatch(match[1], -1) {
			line.WriteString(decodePDFString(string(lit[1])))
		}
		if line.Len() > 0 {
			out.WriteString(line.String())
			out.WriteString("\n")
		}
	}
}

var pdfEscapes = strings.NewReplacer(
	`\n`, "\n", `\r`, "\r", `\t`, "\t",
	`\(`, "(", `\)`, ")", `\\`, `\`,
)

func decodePDFString(s string) string {
	return pdfEscapes.Replace(s)
}
