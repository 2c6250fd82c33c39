package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

// ExtractPDFText concatenates the plain text of every page in order.
func ExtractPDFText(data []byte) (text string, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", model.Invalid("unreadable pdf: %v", r)
		}
	}()
	if len(data) == 0 {
		return "", model.Invalid("pdf is empty")
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", model.Invalid("unreadable pdf: %v", err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pt, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", i, err)
		}
		sb.WriteString(pt)
	}
	return sb.String(), nil
}
