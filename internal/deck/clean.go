package deck

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mesh-intelligence/ganki/pkg/types"
)

var fieldReplacer = strings.NewReplacer(
	"￥", "/ ",
	"<", "&lt;",
	">", "&gt;",
)

// CleanField prepares user input for a note field: NFC normalization, the
// full-width yen sign as a separator, and escaped angle brackets. Input that
// is blank after trimming is rejected.
func CleanField(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", types.ErrEmptyField
	}
	return fieldReplacer.Replace(norm.NFC.String(value)), nil
}

// CleanFields applies CleanField to every value.
func CleanFields(values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		c, err := CleanField(v)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i+1, err)
		}
		out[i] = c
	}
	return out, nil
}
