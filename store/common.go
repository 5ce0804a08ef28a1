package store

import "strconv"

// RowStatus is the status of a row.
type RowStatus string

const (
	// Normal is the status for a normal row.
	Normal RowStatus = "NORMAL"
	// Archived is the status for an archived row.
	Archived RowStatus = "ARCHIVED"
)

func (r RowStatus) String() string {
	return string(r)
}

func itoa(id int32) string {
	return strconv.FormatInt(int64(id), 10)
}
