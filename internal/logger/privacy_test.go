package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPhone(t *testing.T) {
	t.Run("produces consistent hash for same phone", func(t *testing.T) {
		require.Equal(t, HashPhone("56911111111"), HashPhone("56911111111"))
	})

	t.Run("ignores plus prefix", func(t *testing.T) {
		require.Equal(t, HashPhone("56911111111"), HashPhone("+56911111111"))
	})

	t.Run("produces different hashes for different phones", func(t *testing.T) {
		require.NotEqual(t, HashPhone("56911111111"), HashPhone("56922222222"))
	})

	t.Run("produces 8 character hash", func(t *testing.T) {
		require.Len(t, HashPhone("56911111111"), 8)
	})

	t.Run("changes hash when salt changes", func(t *testing.T) {
		originalSalt := hashSalt
		defer func() { hashSalt = originalSalt }()

		hash1 := HashPhone("56911111111")
		SetHashSalt("different-salt")
		hash2 := HashPhone("56911111111")
		require.NotEqual(t, hash1, hash2)
	})

	t.Run("empty salt restores default", func(t *testing.T) {
		originalSalt := hashSalt
		defer func() { hashSalt = originalSalt }()

		SetHashSalt("")
		require.Equal(t, defaultHashSalt, hashSalt)
	})
}

func TestSanitizeDescription(t *testing.T) {
	t.Run("redacts empty description", func(t *testing.T) {
		require.Equal(t, "<empty>", SanitizeDescription(""))
	})

	t.Run("preserves length information for debugging", func(t *testing.T) {
		result := SanitizeDescription("almuerzo con clientes")
		require.Contains(t, result, "3 words")
		require.Contains(t, result, "21 chars")
		require.NotContains(t, result, "clientes")
	})
}

func TestSanitizeText(t *testing.T) {
	t.Run("redacts empty text", func(t *testing.T) {
		require.Equal(t, "<empty>", SanitizeText(""))
	})

	t.Run("shows length for short text", func(t *testing.T) {
		require.Equal(t, "<5 chars>", SanitizeText("21990"))
	})

	t.Run("shows prefix for longer text", func(t *testing.T) {
		result := SanitizeText("this is a long text")
		require.Contains(t, result, "thi...")
		require.Contains(t, result, "19 chars")
	})
}
