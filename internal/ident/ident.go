// Package ident computes entry identity and orders entries chronologically.
// Grounded on analyzer/linage/identity.go's typed-ref-plus-constructor
// pattern: an instance or schema entry's identity is its explicit ^linkId
// if present, otherwise (timestamp, entry kind), with schema entries also
// keyed by entity name; a synthesis is identified by its own link id, and
// an actualize entry by its timestamp plus target link.
package ident

import (
	"fmt"
	"time"

	"github.com/thalo-lang/thalo/ast"
)

// Ref identifies an entry for merge/schema/query purposes.
type Ref string

// Of computes the identity ref for an entry.
func Of(e ast.Entry) Ref {
	switch e.Kind {
	case ast.KindInstance:
		if e.Instance.Header.Link != "" {
			return Ref("link:" + e.Instance.Header.Link)
		}
		return Ref(fmt.Sprintf("ts:%s:instance", e.Instance.Header.Timestamp))
	case ast.KindSchema:
		if e.Schema.Header.Link != "" {
			return Ref("link:" + e.Schema.Header.Link)
		}
		return Ref(fmt.Sprintf("ts:%s:schema:%s", e.Schema.Header.Timestamp, e.Schema.EntityName))
	case ast.KindSynthesis:
		return Ref("link:" + e.Synthesis.LinkID)
	case ast.KindActualize:
		return Ref(fmt.Sprintf("ts:%s:actualize:%s", e.Actualize.Header.Timestamp, e.Actualize.Target))
	}
	return ""
}

// Timestamp extracts the header timestamp string common to every entry
// kind.
func Timestamp(e ast.Entry) string {
	switch e.Kind {
	case ast.KindInstance:
		return e.Instance.Header.Timestamp
	case ast.KindSchema:
		return e.Schema.Header.Timestamp
	case ast.KindSynthesis:
		return e.Synthesis.Header.Timestamp
	case ast.KindActualize:
		return e.Actualize.Header.Timestamp
	}
	return ""
}

// ParseTimestamp parses a Thalo timestamp into a comparable time.Time. An
// unparseable timestamp yields the zero time, which sorts first — callers
// that need a total order also consult file/byte-offset tie-breakers (see
// Before).
func ParseTimestamp(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Position is a tie-breaker location: filename plus byte offset within it.
type Position struct {
	File       string
	ByteOffset uint32
}

// Before reports whether (tsA, posA) sorts strictly before (tsB, posB)
// under the timestamp-then-filename-then-byte-offset order open
// question on alter-entity ties resolves to.
func Before(tsA string, posA Position, tsB string, posB Position) bool {
	ta, tb := ParseTimestamp(tsA), ParseTimestamp(tsB)
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	if posA.File != posB.File {
		return posA.File < posB.File
	}
	return posA.ByteOffset < posB.ByteOffset
}
