package share

import (
	"strings"

	"github.com/mmynk/dutchpay/internal/models"
)

// Line is one participant's amount in a settlement message.
type Line struct {
	Participant string
	Amount      int64
}

// Format renders the settlement request message.
//
// In itemized mode with at least one allocation, every participant with a
// nonzero amount gets its own line. Otherwise the message carries the single
// equal split amount.
func Format(mode models.Mode, total float64, lines []Line, perPerson int64, allocated bool) string {
	var b strings.Builder
	b.WriteString("[정산 요청]\n")
	b.WriteString("총 금액: " + Amount(total) + "\n\n")

	if mode == models.ModeItemized && allocated {
		b.WriteString("--- 개인별 정산 금액 ---\n")
		for _, line := range lines {
			if line.Amount == 0 {
				continue
			}
			b.WriteString(line.Participant + ": " + Won(line.Amount) + "\n")
		}
		return b.String()
	}

	b.WriteString("--- N분의 1 정산 금액 ---\n")
	b.WriteString("1인당 " + Won(perPerson))
	return b.String()
}
