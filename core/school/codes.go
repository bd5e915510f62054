package school

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FormatCode formats a sequential identifier: PREFIX-YEAR-NNN.
func FormatCode(prefix string, year, n int) string {
	return fmt.Sprintf("%s%03d", CodePrefix(prefix, year), n)
}

func CodePrefix(prefix string, year int) string {
	return fmt.Sprintf("%s-%d-", prefix, year)
}

// ParseCodeSuffix returns the sequence number of a code starting with codePrefix.
func ParseCodeSuffix(code, codePrefix string) (int, error) {
	if !strings.HasPrefix(code, codePrefix) {
		return 0, errors.Errorf("code %q does not start with %q", code, codePrefix)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(code, codePrefix))
	if err != nil {
		return 0, errors.Wrapf(err, "parsing code %q", code)
	}
	return n, nil
}
