package macrodef

import "strings"

// Description: Upper-case initials built from two name values in the API response.
// Params: first:path, last:path

func Resolve(kwargs map[string]interface{}, document interface{}) interface{} {
	var b strings.Builder
	for _, key := range []string{"first", "last"} {
		s, _ := kwargs[key].(string)
		if s == "" {
			continue
		}
		b.WriteString(strings.ToUpper(s[:1]))
	}
	return b.String()
}
