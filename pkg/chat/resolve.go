package chat

import (
	"strconv"
	"strings"
)

// ResolutionKind tags how a summary argument was interpreted.
type ResolutionKind int

const (
	// Unresolved means the argument was empty or unusable.
	Unresolved ResolutionKind = iota
	// ByIndex means the argument parsed as a 1-based list position.
	ByIndex
	// ByID means the argument is taken as an identifier.
	ByID
)

// Resolution is the interpreted form of an id-or-index argument.
type Resolution struct {
	Kind  ResolutionKind
	Index int
	ID    string
}

// Resolve interprets arg as either a 1-based list index or an
// identifier. Index parsing is attempted first; stored identifiers are
// uuids and never purely numeric, so the two cannot collide.
func Resolve(arg string) Resolution {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Resolution{Kind: Unresolved}
	}
	if n, err := strconv.Atoi(arg); err == nil {
		return Resolution{Kind: ByIndex, Index: n}
	}
	return Resolution{Kind: ByID, ID: arg}
}
