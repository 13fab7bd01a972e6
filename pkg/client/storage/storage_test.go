// SPDX-FileCopyrightText: Copyright 2026 Carabiner Systems, Inc
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)

	_, ok := kv.Get("missing")
	assert.False(t, ok)

	require.NoError(t, kv.Set("a", "1"))
	require.NoError(t, kv.Set("b", "2"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())

	// A second handle sees what the first one persisted
	reopened, err := NewFileKV(path)
	require.NoError(t, err)
	v, ok := reopened.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, reopened.Delete("a", "not-there"))
	_, ok = reopened.Get("a")
	assert.False(t, ok)

	again, err := NewFileKV(path)
	require.NoError(t, err)
	_, ok = again.Get("a")
	assert.False(t, ok)
	v, _ = again.Get("b")
	assert.Equal(t, "2", v)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind")
}

func TestFileKVSharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	server, err := NewFileKV(path)
	require.NoError(t, err)
	cli, err := NewFileKV(path)
	require.NoError(t, err)

	require.NoError(t, server.Set("auth.access_token", "AT"))
	v, ok := cli.Get("auth.access_token")
	require.True(t, ok)
	assert.Equal(t, "AT", v)

	// A delete through one handle is seen by the other
	require.NoError(t, cli.Delete("auth.access_token"))
	_, ok = server.Get("auth.access_token")
	assert.False(t, ok)

	// and a later write through the other does not bring it back
	require.NoError(t, server.Set("auth.email", "a@b.com"))
	fresh, err := NewFileKV(path)
	require.NoError(t, err)
	_, ok = fresh.Get("auth.access_token")
	assert.False(t, ok)
	v, ok = fresh.Get("auth.email")
	require.True(t, ok)
	assert.Equal(t, "a@b.com", v)
}

func TestFileKVConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	handles := make([]*FileKV, 4)
	for i := range handles {
		kv, err := NewFileKV(path)
		require.NoError(t, err)
		handles[i] = kv
	}

	var wg sync.WaitGroup
	for i, kv := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, kv.Set(fmt.Sprintf("k%d-%d", i, j), "v"))
			}
		}()
	}
	wg.Wait()

	final, err := NewFileKV(path)
	require.NoError(t, err)
	for i := range handles {
		for j := 0; j < 10; j++ {
			_, ok := final.Get(fmt.Sprintf("k%d-%d", i, j))
			assert.True(t, ok, "k%d-%d lost", i, j)
		}
	}
}

func TestFileKVCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileKV(path)
	require.Error(t, err)

	_, err = NewFileKV("")
	require.Error(t, err)
}

func TestScopedStores(t *testing.T) {
	dir := t.TempDir()

	durable, err := NewDurable(dir)
	require.NoError(t, err)
	session, err := NewSessionScoped(dir)
	require.NoError(t, err)

	assert.NotEqual(t, durable.Path(), session.Path())
	assert.Equal(t, filepath.Join(dir, durableFileName), durable.Path())
	assert.Equal(t, filepath.Join(dir, sessionFileName), session.Path())
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Set("k", "v"))
	v, ok := kv.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, 1, kv.Len())

	require.NoError(t, kv.Delete("k"))
	assert.Equal(t, 0, kv.Len())
}
