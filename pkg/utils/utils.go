package utils

import (
	"crypto/rand"
	"hash/fnv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	SeedFrom(parts ...string) uint64
	TruncateRunes(s string, max int) string
}

type utils struct{}

func New() IUtils {
	return &utils{}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// SeedFrom derives a stable seed from the given strings. Cosmetic choices
// (emoji, empathy template index) hang off this so the same session always
// gets the same variation and tests stay reproducible.
func (u *utils) SeedFrom(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// TruncateRunes cuts s to at most max runes, appending an ellipsis when
// anything was dropped. Used to bound outbound WhatsApp messages.
func (u *utils) TruncateRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}
