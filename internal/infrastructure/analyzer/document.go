package analyzer

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

var sentenceBreak = regexp.MustCompile(`[.!?]\s+`)

var pdfInfoKeys = []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate"}

// firstSentences joins the first n non-empty sentences of text.
func firstSentences(text string, n int) string {
	var out []string
	for _, part := range sentenceBreak.Split(strings.TrimSpace(text), -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
		if len(out) == n {
			break
		}
	}
	return strings.Join(out, " ")
}

func textSnippet(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// maxSnippetChars runes take at most 4 bytes each
	raw, err := io.ReadAll(io.LimitReader(f, maxSnippetChars*utf8.UTFMax))
	if err != nil {
		return "", err
	}
	text := strings.ToValidUTF8(string(raw), "")
	if runes := []rune(text); len(runes) > maxSnippetChars {
		text = string(runes[:maxSnippetChars])
	}
	return firstSentences(text, maxSentences), nil
}

// pdfDetails returns the document info dictionary with the page count and the
// first sentences of the first pages. The parser panics on some malformed
// files, which is reported as an error.
func pdfDetails(path string) (meta map[string]any, content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	meta = map[string]any{"page_count": reader.NumPage()}
	info := reader.Trailer().Key("Info")
	for _, key := range pdfInfoKeys {
		if value := strings.TrimSpace(info.Key(key).Text()); value != "" {
			meta[strings.ToLower(key)] = value
		}
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage() && i <= maxSnippetPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return meta, firstSentences(text.String(), maxSentences), nil
}

func spreadsheetMetadata(path string) (map[string]any, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	meta := map[string]any{"sheets": f.GetSheetList()}
	props, err := f.GetDocProps()
	if err != nil || props == nil {
		return meta, nil
	}
	for key, value := range map[string]string{
		"title":            props.Title,
		"subject":          props.Subject,
		"creator":          props.Creator,
		"description":      props.Description,
		"last_modified_by": props.LastModifiedBy,
		"created":          props.Created,
		"modified":         props.Modified,
	} {
		if strings.TrimSpace(value) != "" {
			meta[key] = value
		}
	}
	return meta, nil
}
