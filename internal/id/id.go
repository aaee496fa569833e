// Package id generates short, URL-safe request identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet avoids look-alike characters so IDs can be read back from logs.
const Alphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Size is the length of the random part.
const Size = 14

// Generate returns prefix-<random>, e.g. "req-7mQk2vR9xTb4Hs".
func Generate(prefix string) (string, error) {
	s, err := gonanoid.Generate(Alphabet, Size)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	if prefix == "" {
		return s, nil
	}
	return prefix + "-" + s, nil
}

// MustGenerate is Generate for start-up paths where missing entropy is fatal.
func MustGenerate(prefix string) string {
	s, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return s
}
