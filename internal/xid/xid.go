// Package xid builds prefixed identifiers such as "pay-01926f3a-...". The
// suffix is a UUIDv7, so ids of one prefix sort roughly by creation time.
package xid

import (
	"strings"

	"github.com/google/uuid"
)

func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "-" + id.String()
}

// Valid reports whether id was built by New with prefix.
func Valid(prefix string, id string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
