package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCSVReaderReadsByColumnName(t *testing.T) {
	path := writeTempCSV(t, "id,title,extra\n1,First,x\n2,Second\n")
	reader, err := OpenCSV(path)
	require.NoError(t, err)
	defer reader.Close()

	row, ok := reader.Next()
	require.True(t, ok)
	assert.Equal(t, "1", row.Get("id"))
	assert.Equal(t, "First", row.Get("title"))
	assert.Equal(t, "", row.Get("missing"))

	// short row, the absent column reads empty
	row, ok = reader.Next()
	require.True(t, ok)
	assert.Equal(t, "Second", row.Get("title"))
	assert.Equal(t, "", row.Get("extra"))

	_, ok = reader.Next()
	assert.False(t, ok)
	assert.NoError(t, reader.Err())
}

func TestCSVReaderToleratesDamagedQuoting(t *testing.T) {
	path := writeTempCSV(t, "id,text\n1,\"ok\"\n2,\"broken\"trailing\n3,fine\n")
	reader, err := OpenCSV(path)
	require.NoError(t, err)
	defer reader.Close()

	var ids []string
	for {
		row, ok := reader.Next()
		if !ok {
			break
		}
		ids = append(ids, row.Get("id"))
	}
	// LazyQuotes keeps most damaged lines readable, nothing may be lost silently
	assert.Equal(t, uint64(0), reader.Skipped())
	assert.Len(t, ids, 3)
}

func TestCSVReaderResolveColumn(t *testing.T) {
	path := writeTempCSV(t, "Text,Timestamp\nhello,2023-01-01\n")
	reader, err := OpenCSV(path)
	require.NoError(t, err)
	defer reader.Close()

	name, ok := reader.ResolveColumn("text", "Text", "content")
	assert.True(t, ok)
	assert.Equal(t, "Text", name)

	_, ok = reader.ResolveColumn("retweets", "shares")
	assert.False(t, ok)
}

func TestOpenCSVMissingFile(t *testing.T) {
	_, err := OpenCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, os.IsNotExist(err))
}
