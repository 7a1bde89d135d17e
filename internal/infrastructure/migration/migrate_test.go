package migration

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, identifier, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "create_documents", identifier)

	body, err := io.ReadAll(up)
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS documents")
	assert.Contains(t, string(body), "PRIMARY KEY (tenant_id, collection, doc_id)")

	down, _, err := src.ReadDown(first)
	require.NoError(t, err)
	defer down.Close()
	body, err = io.ReadAll(down)
	require.NoError(t, err)
	assert.Contains(t, string(body), "DROP TABLE IF EXISTS documents")
}

func TestSource_EveryUpHasADown(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	version, err := src.First()
	require.NoError(t, err)
	for {
		down, _, err := src.ReadDown(version)
		if assert.NoError(t, err, "version %d has no down migration", version) {
			_ = down.Close()
		}

		version, err = src.Next(version)
		if err != nil {
			// os.ErrNotExist marks the last version
			assert.ErrorIs(t, err, os.ErrNotExist)
			break
		}
	}
}
