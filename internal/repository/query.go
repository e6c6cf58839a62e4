package repository

import "strings"

// likeEscaper 转义 LIKE 通配符，配合 ESCAPE '\'
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 关键字 -> %keyword%（已转义、转小写）
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
}
