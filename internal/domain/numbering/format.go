package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
)

// counterPattern matches the counter placeholder: a run of zeros or hashes in braces.
// The run length is the minimum width of the rendered counter.
var counterPattern = regexp.MustCompile(`\{(0+|#+)\}`)

// FormatNumber renders a template for the counter value n at the given time.
//
// Date placeholders {YYYY}, {YY}, {MM} and {DD} are replaced everywhere they occur.
// The first counter placeholder is replaced by n left-padded with zeros;
// numbers wider than the placeholder are never truncated.
func FormatNumber(template string, n int64, at time.Time) string {
	year := strconv.Itoa(at.Year())
	r := strings.NewReplacer(
		"{YYYY}", year,
		"{YY}", year[len(year)-2:],
		"{MM}", fmt.Sprintf("%02d", int(at.Month())),
		"{DD}", fmt.Sprintf("%02d", at.Day()),
	)
	out := r.Replace(template)

	loc := counterPattern.FindStringIndex(out)
	if loc == nil {
		return out
	}
	width := loc[1] - loc[0] - 2
	return out[:loc[0]] + fmt.Sprintf("%0*d", width, n) + out[loc[1]:]
}

// ValidateTemplate checks that a template can produce distinct numbers
func ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Number format cannot be empty")
	}
	switch len(counterPattern.FindAllStringIndex(template, -1)) {
	case 0:
		return shared.NewDomainError(shared.CodeInvalidInput, "Number format must contain a counter placeholder such as {0000}")
	case 1:
		return nil
	default:
		return shared.NewDomainError(shared.CodeInvalidInput, "Number format must contain exactly one counter placeholder")
	}
}
