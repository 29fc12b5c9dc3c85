package ingestion

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	// BinarySampleSize is the number of bytes to sample for binary detection
	BinarySampleSize = 1000
	// BinaryThreshold is the proportion of non-printable characters that indicates binary data
	BinaryThreshold = 0.3
	// minPrintableRun is the shortest run of printable characters kept from a binary .doc
	minPrintableRun = 4
)

var (
	// ErrUnsupportedFormat is returned for file extensions that cannot be read
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyExtraction is returned when a document yields no text
	ErrEmptyExtraction = errors.New("no text could be extracted")

	supportedExtensions = []string{".pdf", ".docx", ".doc", ".txt"}

	xmlTags       = regexp.MustCompile(`<[^>]+>`)
	inlineSpace   = regexp.MustCompile(`[ \t\r\f\v]+`)
	repeatedLines = regexp.MustCompile(`\n\s*\n+`)
)

// SupportedExtensions returns the accepted file extensions
func SupportedExtensions() []string {
	return append([]string(nil), supportedExtensions...)
}

// IsSupported reports whether fileName has an accepted extension
func IsSupported(fileName string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ExtractText extracts plain text from a PDF, DOCX, DOC or TXT document
func ExtractText(data []byte, fileName string) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".doc":
		text = extractLegacyDoc(data)
	case ".txt":
		text = strings.ToValidUTF8(string(data), "")
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyExtraction, fileName)
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return normalizeWhitespace(buf.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()

		body, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}

		xml := string(body)
		xml = strings.ReplaceAll(xml, "</w:p>", "\n")
		xml = strings.ReplaceAll(xml, "</w:tc>", " | ")
		xml = strings.ReplaceAll(xml, "<w:tab/>", "\t")
		xml = strings.ReplaceAll(xml, "<w:br/>", "\n")
		text := html.UnescapeString(xmlTags.ReplaceAllString(xml, ""))
		return normalizeWhitespace(text), nil
	}

	return "", errors.New("no document.xml found in DOCX")
}

// extractLegacyDoc reads .doc files as text. Binary Word documents keep only
// their printable runs.
func extractLegacyDoc(data []byte) string {
	content := strings.ToValidUTF8(string(data), "")
	if !IsBinaryData(content) {
		return content
	}

	var sb strings.Builder
	var run []rune
	flush := func() {
		if len(run) >= minPrintableRun {
			sb.WriteString(string(run))
			sb.WriteByte('\n')
		}
		run = run[:0]
	}
	for _, r := range content {
		if unicode.IsPrint(r) || r == '\t' {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()

	return normalizeWhitespace(sb.String())
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = inlineSpace.ReplaceAllString(s, " ")
	s = repeatedLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// IsBinaryData checks if content appears to be binary (PDF/ZIP markers)
func IsBinaryData(content string) bool {
	if len(content) == 0 {
		return false
	}

	if strings.HasPrefix(content, "%PDF-") || strings.HasPrefix(content, "PK") {
		return true
	}

	sampleSize := min(BinarySampleSize, len(content))
	nonPrintable := 0
	for i := 0; i < sampleSize; i++ {
		ch := content[i]
		if ch < 32 && ch != '\n' && ch != '\r' && ch != '\t' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(sampleSize) > BinaryThreshold
}
