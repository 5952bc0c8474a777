package cli

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetOptionalText(t *testing.T) {
	got, err := GetOptionalText(rdr("\n"), "Phone", io.Discard)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = GetOptionalText(rdr(" 555-0101 \n"), "Phone", io.Discard)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "555-0101", *got)
}

func TestGetInt(t *testing.T) {
	got, err := GetInt(rdr("34\n"), "Age", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 34, got)

	_, err = GetInt(rdr("thirty\n"), "Age", io.Discard)
	assert.ErrorContains(t, err, "not a whole number")
}

func TestGetOptionalNumbers(t *testing.T) {
	i, err := GetOptionalInt(rdr("\n"), "Heart rate", io.Discard)
	require.NoError(t, err)
	assert.Nil(t, i)

	i, err = GetOptionalInt(rdr("72\n"), "Heart rate", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 72, *i)

	f, err := GetOptionalFloat(rdr("172,5\n"), "Height", io.Discard)
	require.NoError(t, err)
	assert.InDelta(t, 172.5, *f, 1e-9)

	_, err = GetOptionalFloat(rdr("tall\n"), "Height", io.Discard)
	assert.Error(t, err)
}
