package buildsys

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheRoundtrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "tasks.cache")

	list := TaskList{
		"index": {
			Short: "index",
			Desc:  "Reindexes the channel",
			Base:  dir,
			Deps:  []string{},
			Cmds:  []TaskCmd{ShellCmd{TaskName: "index", Content: "conda index ."}},
		},
	}
	options := map[string]string{"channel": "other"}

	require.NoError(t, WriteCache(cachePath, options, list))

	gotOptions, gotList, err := ReadCache(cachePath)
	require.NoError(t, err)
	require.Equal(t, options, gotOptions)
	require.Len(t, gotList, 1)
	require.Equal(t, "index", gotList["index"].Short)
	require.Equal(t, list["index"].Cmds, gotList["index"].Cmds)
}

func TestReadCacheIfFresh(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "tasks.cache")
	scriptPath := filepath.Join(dir, "tasks.star")

	require.NoError(t, os.WriteFile(scriptPath, []byte("x = 1"), 0o600))
	require.NoError(t, WriteCache(cachePath, map[string]string{}, TaskList{}))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(scriptPath, old, old))

	_, _, err := ReadCacheIfFresh(cachePath, scriptPath)
	require.NoError(t, err)

	// modifying the script invalidates the cache
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(scriptPath, future, future))

	_, _, err = ReadCacheIfFresh(cachePath, scriptPath)
	require.ErrorIs(t, err, os.ErrNotExist)

	// a missing cache reports os.ErrNotExist as well
	_, _, err = ReadCacheIfFresh(filepath.Join(dir, "missing.cache"), scriptPath)
	require.ErrorIs(t, err, os.ErrNotExist)
}
