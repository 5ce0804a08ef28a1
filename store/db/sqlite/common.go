package sqlite

import "strings"

// placeholders returns a comma-separated list of n "?" placeholders.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, "?")
	}
	return strings.Join(list, ", ")
}
