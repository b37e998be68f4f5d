// Package ingest turns uploaded proposal and discovery documents into plain
// text plus lightweight structure: named sections and a detected document
// type. PDF, DOCX, XLSX, TXT and Markdown uploads are supported.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nicodishanthj/Modeval_phase1/internal/common"
)

// DocType classifies an uploaded document by its content.
type DocType string

const (
	DocTypeRFP      DocType = "rfp"
	DocTypeProposal DocType = "proposal"
	DocTypeResponse DocType = "response"
	DocTypeOther    DocType = "other"
)

// ErrUnsupportedFormat is returned for file extensions no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Document is a parsed upload: the full extracted text, any sections the
// extractor recognised, the detected type, and format metadata.
type Document struct {
	Content  string            `json:"content"`
	DocType  DocType           `json:"document_type"`
	Sections map[string]string `json:"sections"`
	Metadata map[string]string `json:"metadata"`
}

// Parse dispatches on the filename extension and extracts the document.
func Parse(fileContent []byte, filename string) (*Document, error) {
	extension := strings.ToLower(filepath.Ext(filename))
	common.Logger().Debug("ingest: parsing upload", "filename", filename, "bytes", len(fileContent))
	switch extension {
	case ".pdf":
		return parsePDF(fileContent, filename)
	case ".docx":
		return parseDOCX(fileContent, filename)
	case ".xlsx":
		return parseXLSX(fileContent, filename)
	case ".txt", ".md":
		return parseText(fileContent, filename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, extension)
	}
}

func parseText(fileContent []byte, filename string) (*Document, error) {
	if !utf8.Valid(fileContent) {
		return nil, fmt.Errorf("parse text file %s: not valid UTF-8", filename)
	}
	content := string(fileContent)
	return &Document{
		Content:  content,
		DocType:  DetectDocType(content),
		Sections: ExtractSections(content),
		Metadata: map[string]string{
			"filename": filename,
			"lines":    fmt.Sprintf("%d", strings.Count(content, "\n")+1),
			"format":   "text",
		},
	}, nil
}

// rfp indicators win over proposal indicators, which win over generic
// response wording; anything else is "other".
var (
	rfpIndicators = []string{
		"request for proposal", "rfp", "request for quotation", "rfq",
		"invitation to tender", "itt", "statement of work", "sow",
	}
	proposalIndicators = []string{
		"proposal", "response to rfp", "technical proposal",
		"commercial proposal", "bid response",
	}
	responseIndicators = []string{
		"response", "reply", "submission", "tender response",
	}
)

// DetectDocType classifies content by indicator phrases.
func DetectDocType(content string) DocType {
	lower := strings.ToLower(content)
	contains := func(indicators []string) bool {
		for _, indicator := range indicators {
			if strings.Contains(lower, indicator) {
				return true
			}
		}
		return false
	}
	switch {
	case contains(rfpIndicators):
		return DocTypeRFP
	case contains(proposalIndicators):
		return DocTypeProposal
	case contains(responseIndicators):
		return DocTypeResponse
	default:
		return DocTypeOther
	}
}
