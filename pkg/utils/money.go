package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"RUB": "₽",
	"USD": "$",
	"EUR": "€",
}

// MinorToDecimal 最小货币单位 -> 元
func MinorToDecimal(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// FormatMoney 格式化金额，如 149900 RUB -> "1 499 ₽"，有零头时保留两位小数
func FormatMoney(amount int64, currency string) string {
	d := MinorToDecimal(amount)

	var s string
	if d.Equal(d.Truncate(0)) {
		s = groupThousands(d.StringFixed(0))
	} else {
		fixed := d.StringFixed(2)
		dot := strings.IndexByte(fixed, '.')
		s = groupThousands(fixed[:dot]) + "," + fixed[dot+1:]
	}

	if sym, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		return s + " " + sym
	}
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
