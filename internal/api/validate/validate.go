package validate

import (
	"fmt"
	"net/url"
	"strings"
)

// Field limits for stored bookmarks.
const (
	MaxTitleLen  = 1000
	MaxFolderLen = 200
	MaxURLLen    = 4096
)

func NonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v string, limit int) error {
	if len(v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// Unit checks that a score parameter lies in [0,1].
func Unit(field string, v float32) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be within [0,1]", field)
	}
	return nil
}

// URL requires an absolute http(s) URL.
func URL(v string) error {
	if err := NonEmpty("url", v); err != nil {
		return err
	}
	if err := MaxLen("url", v, MaxURLLen); err != nil {
		return err
	}
	u, err := url.Parse(v)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	return nil
}

// -------- Request specific helpers ----------

// SearchParams validates /search knobs after defaults are applied.
func SearchParams(query string, certainty, alpha float32, limit int) error {
	if err := NonEmpty("query", query); err != nil {
		return err
	}
	if err := Unit("certainty", certainty); err != nil {
		return err
	}
	if err := Unit("alpha", alpha); err != nil {
		return err
	}
	if limit <= 0 {
		return fmt.Errorf("limit_chunks must be positive")
	}
	return nil
}

// StoreRequest validates the shared fields of /store and /storepdf.
func StoreRequest(rawURL, title, folder string) error {
	if err := URL(rawURL); err != nil {
		return err
	}
	if err := MaxLen("title", title, MaxTitleLen); err != nil {
		return err
	}
	return MaxLen("folder", folder, MaxFolderLen)
}

// PDFBytes converts a JSON integer array into bytes, rejecting values outside 0..255.
func PDFBytes(in []int) ([]byte, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("pdf_bytes is required")
	}
	out := make([]byte, len(in))
	for i, v := range in {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("pdf_bytes[%d] out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	return out, nil
}
