// Package id generates prefixed identifiers for locally created records.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each record kind.
const (
	PrefixUser               = "usr"
	PrefixCategory           = "cat"
	PrefixCollection         = "col"
	PrefixCollectionDetail   = "det"
	PrefixAttachment         = "att"
	PrefixPost               = "pst"
	PrefixComment            = "cmt"
	PrefixLike               = "lik"
	PrefixDocument           = "doc"
	PrefixDocumentCollection = "dcl"
)

// Generate creates a prefixed NanoID, e.g. "pst-V1StGXR8_Z5jdHi6B-myT".
//
// Returns an error if the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	nid, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + nid, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}

// Ensure assigns a generated ID to *target when it is empty.
func Ensure(target *string, prefix string) error {
	if *target != "" {
		return nil
	}
	v, err := Generate(prefix)
	if err != nil {
		return err
	}
	*target = v
	return nil
}
