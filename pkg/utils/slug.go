package utils

import (
	"regexp"
	"strings"
)

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// 西里尔字母转写表（商品名多为俄文）
var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

// Slugify 由名称生成 URL 标识，如 "Худи Oversize" -> "hudi-oversize"
// 结果为空时返回 fallback
func Slugify(s, fallback string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range s {
		if t, ok := translit[r]; ok {
			b.WriteString(t)
			continue
		}
		b.WriteRune(r)
	}

	out := slugNonAlnum.ReplaceAllString(b.String(), "-")
	out = strings.Trim(out, "-")
	if len(out) > 200 {
		out = strings.TrimRight(out[:200], "-")
	}
	if out == "" {
		return fallback
	}
	return out
}

// IsValidSlug 只允许小写字母、数字和中划线
func IsValidSlug(s string) bool {
	return s != "" && s == Slugify(s, "")
}
