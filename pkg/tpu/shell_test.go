package tpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	require.Equal(t, "simple", Quote("simple"))
	require.Equal(t, "''", Quote(""))
	require.Equal(t, "'two words'", Quote("two words"))
	require.Equal(t, "'a'\\''b'", Quote("a'b"))
	require.Equal(t, "/path/ok", Quote("/path/ok"))
	require.Equal(t, "abc+123", Quote("abc+123"))
	require.Equal(t, "'echo hi; rm -rf /'", Quote("echo hi; rm -rf /"))
	require.Equal(t, "'$(whoami)'", Quote("$(whoami)"))
}
