package middleware

import "strings"

// MaskToken маскирует bearer-токен в логах (полный токен не светим).
func MaskToken(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "***" + s[len(s)-2:]
}
