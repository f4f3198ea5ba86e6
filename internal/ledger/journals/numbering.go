package journals

import "fmt"

// Journal number prefixes by kind; sequences are scoped per (kind, year).
const (
	prefixGeneral   = "JRN"
	prefixAdjusting = "ADJ"

	// DefaultNumberPad is the zero-padding width of the sequence suffix.
	DefaultNumberPad = 4
)

func numberPrefix(kind JournalKind) string {
	if kind == JournalKindAdjusting {
		return prefixAdjusting
	}
	return prefixGeneral
}

// FormatNumber renders a journal number such as JRN/2024/0001.
func FormatNumber(kind JournalKind, year int, seq int64, pad int) string {
	if pad <= 0 {
		pad = DefaultNumberPad
	}
	return fmt.Sprintf("%s/%d/%0*d", numberPrefix(kind), year, pad, seq)
}
