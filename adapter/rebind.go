package adapter

import (
	"strconv"
	"strings"
)

// Rebind rewrites "?" placeholders to "$1", "$2", ... skipping quoted text.
func Rebind(sql string) string {
	if !strings.Contains(sql, "?") {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
