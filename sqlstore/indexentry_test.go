package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/sqlstore"
)

func addEntry(t *testing.T, svc *sqlstore.IndexService, url, word string, freq, loc int, tag string) {
	t.Helper()
	require.NoError(t, svc.AddEntry(context.Background(), &bulgu.IndexEntry{
		DocumentURL: url,
		Word:        word,
		Frequency:   freq,
		Location:    loc,
		Tag:         tag,
	}))
}

func TestIndexService_AddEntry(t *testing.T) {
	t.Parallel()

	t.Run("routes words to partitions by first letter", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewIndexService(s)
		ctx := context.Background()

		addEntry(t, svc, "https://a.com.tr/", "ankara", 1, 0, "title")
		addEntry(t, svc, "https://a.com.tr/", "zeytin", 1, 1, "p")
		addEntry(t, svc, "https://a.com.tr/", "2026", 1, 2, "p")

		entries, err := svc.FindEntriesByWords(ctx, []string{"ankara", "zeytin", "2026"})
		require.NoError(t, err)
		assert.Len(t, entries, 3)

		n, err := svc.CountEntries(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("replays of the same location update in place", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewIndexService(s)
		ctx := context.Background()

		addEntry(t, svc, "https://a.com.tr/", "haber", 1, 0, "p")
		addEntry(t, svc, "https://a.com.tr/", "haber", 5, 0, "title")

		entries, err := svc.FindEntriesByWords(ctx, []string{"haber"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 5, entries[0].Frequency)
		assert.Equal(t, "title", entries[0].Tag)
	})

	t.Run("returns error for invalid entry", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewIndexService(s)

		err := svc.AddEntry(context.Background(), &bulgu.IndexEntry{Word: "haber"})
		require.Error(t, err)
		assert.Equal(t, bulgu.EINVALID, bulgu.ErrorCode(err))
	})
}

func TestIndexService_FindEntriesByWords(t *testing.T) {
	t.Parallel()

	t.Run("returns rows for the requested words only", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewIndexService(s)
		ctx := context.Background()

		addEntry(t, svc, "https://a.com.tr/", "ankara", 2, 0, "title")
		addEntry(t, svc, "https://a.com.tr/", "ankara", 2, 7, "p")
		addEntry(t, svc, "https://b.com.tr/", "ankara", 1, 3, "h1")
		addEntry(t, svc, "https://a.com.tr/", "istanbul", 1, 1, "p")
		addEntry(t, svc, "https://a.com.tr/", "izmir", 1, 2, "p")

		entries, err := svc.FindEntriesByWords(ctx, []string{"ankara", "istanbul"})
		require.NoError(t, err)
		assert.Len(t, entries, 4)
		for _, e := range entries {
			assert.Contains(t, []string{"ankara", "istanbul"}, e.Word)
		}
	})

	t.Run("returns nothing for an empty word list", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewIndexService(s)

		entries, err := svc.FindEntriesByWords(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestIndexService_DeleteAllEntries(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	s := db.NewSession()
	svc := sqlstore.NewIndexService(s)
	ctx := context.Background()

	addEntry(t, svc, "https://a.com.tr/", "ankara", 1, 0, "p")
	addEntry(t, svc, "https://a.com.tr/", "zeytin", 1, 1, "p")

	require.NoError(t, svc.DeleteAllEntries(ctx))

	n, err := svc.CountEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexService_CountEntriesByDocument(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	s := db.NewSession()
	svc := sqlstore.NewIndexService(s)
	ctx := context.Background()

	addEntry(t, svc, "https://a.com.tr/", "ankara", 1, 0, "p")
	addEntry(t, svc, "https://a.com.tr/", "zeytin", 1, 1, "p")
	addEntry(t, svc, "https://b.com.tr/", "ankara", 1, 0, "p")

	n, err := svc.CountEntriesByDocument(ctx, "https://a.com.tr/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
