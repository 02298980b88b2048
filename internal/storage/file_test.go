package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectenv/tools-index/internal/catalog"
	"github.com/projectenv/tools-index/internal/catalog/catalogtest"
)

func testCatalog() *catalog.Catalog {
	return catalogtest.New(
		catalogtest.WithJDK("temurin", "17.0.8+7", catalog.Linux, catalog.AMD64, "https://example.com/jdk-linux-x64.tar.gz"),
		catalogtest.WithJDK("temurin", "17.0.8+7", catalog.Linux, catalog.AArch64, "https://example.com/jdk-linux-aarch64.tar.gz"),
		catalogtest.WithSynonyms("temurin", "Temurin", "temurin"),
		catalogtest.WithMaven("3.9.6", "https://example.com/apache-maven-3.9.6-bin.zip"),
		catalogtest.WithClojure("1.11.1.1413", catalog.Windows, "https://example.com/clojure-tools.zip"),
	)
}

func TestFileStore_StoreAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "index-v2.json")
	store := NewFileStore(path)
	ctx := context.Background()

	original := testCatalog()
	require.NoError(t, store.Store(ctx, original))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePermissions), info.Mode().Perm())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalogtest.URLs(original), catalogtest.URLs(loaded))
	assert.Equal(t, original.JDKDistributionSynonyms, loaded.JDKDistributionSynonyms)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"index-v2.json", "index-v2.json.lock"}, names)
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "index-v2.json"))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Len())
	assert.Equal(t, catalog.New(), loaded)
}

func TestFileStore_LoadInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index-v2.json")
	require.NoError(t, os.WriteFile(path, catalogtest.InvalidJSON(), 0600))

	_, err := NewFileStore(path).Load(context.Background())
	require.ErrorContains(t, err, "failed to parse index file")
}

func TestFileStore_StoreOverwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index-v2.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, testCatalog()))
	require.NoError(t, store.Store(ctx, catalogtest.New(catalogtest.WithGradle("8.5", "https://example.com/gradle-8.5-bin.zip"))))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gradleVersions/8.5": "https://example.com/gradle-8.5-bin.zip"}, catalogtest.URLs(loaded))
}

func TestFileStore_StoreNil(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "index-v2.json"), WithLegacyPath(filepath.Join(t.TempDir(), "index.json")))
	assert.Error(t, store.Store(context.Background(), nil))
}

func TestFileStore_StoreWritesLegacyIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	legacyPath := filepath.Join(dir, "index.json")
	store := NewFileStore(filepath.Join(dir, "index-v2.json"), WithLegacyPath(legacyPath))

	require.NoError(t, store.Store(context.Background(), testCatalog()))

	data, err := os.ReadFile(legacyPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"jdkVersions": {"temurin": {"17.0.8+7": {"linux": "https://example.com/jdk-linux-x64.tar.gz"}}},
		"jdkDistributionSynonyms": {"temurin": ["Temurin", "temurin"]},
		"gradleVersions": {},
		"mavenVersions": {"3.9.6": "https://example.com/apache-maven-3.9.6-bin.zip"},
		"mvndVersions": {},
		"nodeVersions": {}
	}`, string(data))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, catalogtest.URLs(testCatalog()), catalogtest.URLs(loaded))
}

func TestFileStore_StoreWithoutLegacyPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "index-v2.json"))

	require.NoError(t, store.Store(context.Background(), testCatalog()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"index-v2.json", "index-v2.json.lock"}, names)
}

func TestFileStore_StoreLegacyFailureKeepsIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "index-v2.json")
	previous := catalogtest.New(catalogtest.WithGradle("8.4", "https://example.com/gradle-8.4-bin.zip"))
	require.NoError(t, NewFileStore(path).Store(context.Background(), previous))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// The legacy index cannot be written below a regular file.
	blocker := filepath.Join(dir, "not-a-directory")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))
	store := NewFileStore(path, WithLegacyPath(filepath.Join(blocker, "index.json")))

	err = store.Store(context.Background(), testCatalog())
	require.ErrorContains(t, err, "failed to create index directory")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"index-v2.json", "index-v2.json.lock", "not-a-directory"}, names)
}

func TestFileStore_StoreLegacyLockedKeepsIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "index-v2.json")
	legacyPath := filepath.Join(dir, "index.json")

	held := flock.New(legacyPath + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	t.Cleanup(func() { _ = held.Unlock() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*LockRetryDelay)
	defer cancel()
	err = NewFileStore(path, WithLegacyPath(legacyPath)).Store(ctx, testCatalog())
	require.ErrorContains(t, err, "failed to lock")

	for _, p := range []string{path, legacyPath} {
		_, statErr := os.Stat(p)
		assert.True(t, os.IsNotExist(statErr), "%s was written", p)
	}
}

func TestFileStore_StoreSamePaths(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.json")
	err := NewFileStore(path, WithLegacyPath(path)).Store(context.Background(), testCatalog())
	require.ErrorContains(t, err, "is the index path")
}

func TestFileStore_StoreWaitsForLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index-v2.json")
	store := NewFileStore(path)

	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	ctx, cancel := context.WithTimeout(context.Background(), 3*LockRetryDelay)
	defer cancel()
	err = store.Store(ctx, testCatalog())
	require.ErrorContains(t, err, "failed to lock")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, held.Unlock())

	done := make(chan error, 1)
	go func() { done <- store.Store(context.Background(), testCatalog()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("store did not complete after the lock was released")
	}
}
