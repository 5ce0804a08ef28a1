package postgres

import (
	"fmt"
	"strings"
)

// placeholder returns the Postgres positional placeholder for index n (1-based).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns a comma-separated list of n positional placeholders.
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		list = append(list, placeholder(i))
	}
	return strings.Join(list, ", ")
}
