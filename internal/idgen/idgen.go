// Package idgen provides short, URL-safe identifiers for report events,
// backed by nanoid.
package idgen

import (
	"fmt"
	"strconv"
	"sync/atomic"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ReportPrefix is prepended to every report event ID.
const ReportPrefix = "rpt-"

// Alphabet is the character set used for the random portion of an ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

var fallbackSeq atomic.Uint64

// New returns a new random ID with the given prefix.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// ReportID returns an ID for a report event. It never fails: if the random
// source is unavailable it falls back to a process-local sequence number.
func ReportID() string {
	id, err := New(ReportPrefix)
	if err != nil {
		return ReportPrefix + "seq" + strconv.FormatUint(fallbackSeq.Add(1), 10)
	}
	return id
}
