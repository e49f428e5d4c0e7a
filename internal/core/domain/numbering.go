package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// NumberFormat describes how a record type renders its display number:
// <Prefix>-[<year>-]<zero-padded sequence>. Widths differ per type and are
// kept as independent configuration; nothing unifies them.
type NumberFormat struct {
	Prefix   string
	WithYear bool
	Width    int
}

// DefaultNumberFormats returns the formats used when nothing is configured.
func DefaultNumberFormats() map[RecordType]NumberFormat {
	return map[RecordType]NumberFormat{
		RecordPolicy:    {Prefix: "POL", WithYear: true, Width: 4},
		RecordClaim:     {Prefix: "CLM", WithYear: false, Width: 6},
		RecordComplaint: {Prefix: "CMP", WithYear: true, Width: 3},
	}
}

// CounterKey names the sequence the format draws from.
func (f NumberFormat) CounterKey() string {
	return f.Prefix
}

// Format renders seq. A sequence wider than Width is printed in full.
func (f NumberFormat) Format(seq int64, year int) string {
	if f.WithYear {
		return fmt.Sprintf("%s-%04d-%0*d", f.Prefix, year, f.Width, seq)
	}
	return fmt.Sprintf("%s-%0*d", f.Prefix, f.Width, seq)
}

// Parse extracts the trailing sequence counter from number. The year segment
// is optional regardless of WithYear so numbers written under an older format
// still parse. A number without trailing digits is an error, never zero.
// Under a year-bearing format a yearless number with a 4-digit tail is
// rejected too: "POL-2025" is a year with the sequence missing.
func (f NumberFormat) Parse(number string) (int64, error) {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(f.Prefix) + `-(?:(\d{4})-)?(\d+)$`)
	m := re.FindStringSubmatch(number)
	if m == nil {
		return 0, AllocationFailure(ReasonMalformedNumber,
			fmt.Sprintf("display number %q does not match %s format", number, f.Prefix), nil)
	}
	year, tail := m[1], m[2]
	if f.WithYear && year == "" && len(tail) == 4 {
		return 0, AllocationFailure(ReasonMalformedNumber,
			fmt.Sprintf("display number %q has a year but no sequence", number), nil)
	}
	n, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0, AllocationFailure(ReasonMalformedNumber,
			fmt.Sprintf("display number %q has an unreadable counter", number), err)
	}
	return n, nil
}

func (f NumberFormat) Validate() error {
	if f.Prefix == "" {
		return fmt.Errorf("number format: empty prefix")
	}
	if f.Width <= 0 {
		return fmt.Errorf("number format %s: width must be positive", f.Prefix)
	}
	return nil
}
