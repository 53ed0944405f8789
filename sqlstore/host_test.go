package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulgusearch/bulgu"
	"github.com/bulgusearch/bulgu/sqlstore"
)

func TestHostService_UpsertHost(t *testing.T) {
	t.Parallel()

	t.Run("inserts a new host", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)
		ctx := context.Background()

		host := &bulgu.Host{Domain: "haber.com.tr", IP: "93.184.216.34", Port: 443, Status: 200}
		require.NoError(t, svc.UpsertHost(ctx, host))

		found, err := svc.FindHostByDomain(ctx, "haber.com.tr")
		require.NoError(t, err)
		assert.Equal(t, "93.184.216.34", found.IP)
		assert.Equal(t, 443, found.Port)
		assert.Equal(t, 200, found.Status)
		assert.Nil(t, found.LastCrawled)
	})

	t.Run("replaces fields but preserves score on conflict", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)
		ctx := context.Background()

		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "haber.com.tr", IP: "1.1.1.1", Port: 80}))
		require.NoError(t, svc.IncrementScore(ctx, "haber.com.tr", 3))

		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "haber.com.tr", IP: "2.2.2.2", Port: 443}))

		found, err := svc.FindHostByDomain(ctx, "haber.com.tr")
		require.NoError(t, err)
		assert.Equal(t, "2.2.2.2", found.IP)
		assert.Equal(t, 443, found.Port)
		assert.Equal(t, 3.0, found.Score)
	})

	t.Run("returns error for invalid host", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)

		err := svc.UpsertHost(context.Background(), &bulgu.Host{})
		require.Error(t, err)
		assert.Equal(t, bulgu.EINVALID, bulgu.ErrorCode(err))
	})
}

func TestHostService_SafeAddHost(t *testing.T) {
	t.Parallel()

	t.Run("inserts when the domain is new", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)
		ctx := context.Background()

		added, err := svc.SafeAddHost(ctx, &bulgu.Host{Domain: "yeni.com.tr", IP: "1.2.3.4", Port: 80})
		require.NoError(t, err)
		assert.True(t, added)
	})

	t.Run("leaves an existing row untouched", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)
		ctx := context.Background()

		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "eski.com.tr", IP: "1.1.1.1", Port: 80}))

		added, err := svc.SafeAddHost(ctx, &bulgu.Host{Domain: "eski.com.tr", IP: "9.9.9.9", Port: 443})
		require.NoError(t, err)
		assert.False(t, added)

		found, err := svc.FindHostByDomain(ctx, "eski.com.tr")
		require.NoError(t, err)
		assert.Equal(t, "1.1.1.1", found.IP)
	})
}

func TestHostService_FindUnscannedHosts(t *testing.T) {
	t.Parallel()

	t.Run("returns only hosts without a crawl timestamp", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)
		ctx := context.Background()

		now := time.Now()
		crawled := &bulgu.Host{Domain: "done.com.tr", LastCrawled: &now}
		require.NoError(t, svc.UpsertHost(ctx, crawled))
		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "todo1.com.tr"}))
		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "todo2.com.tr"}))

		hosts, err := svc.FindUnscannedHosts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, hosts, 2)
		for _, h := range hosts {
			assert.Nil(t, h.LastCrawled)
		}
	})

	t.Run("respects the limit", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)
		ctx := context.Background()

		for _, domain := range []string{"a.com.tr", "b.com.tr", "c.com.tr"} {
			require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: domain}))
		}

		hosts, err := svc.FindUnscannedHosts(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, hosts, 2)
	})
}

func TestHostService_MarkHostCrawled(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	s := db.NewSession()
	svc := sqlstore.NewHostService(s)
	ctx := context.Background()

	require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "site.com.tr"}))

	at := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	require.NoError(t, svc.MarkHostCrawled(ctx, "site.com.tr", at))

	found, err := svc.FindHostByDomain(ctx, "site.com.tr")
	require.NoError(t, err)
	require.NotNil(t, found.LastCrawled)
	assert.True(t, found.LastCrawled.Equal(at))

	n, err := svc.CountUnscannedHosts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHostService_Scores(t *testing.T) {
	t.Parallel()

	t.Run("increment accumulates and zero resets all", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)
		ctx := context.Background()

		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "one.com.tr"}))
		require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "two.com.tr"}))

		require.NoError(t, svc.IncrementScore(ctx, "one.com.tr", 1))
		require.NoError(t, svc.IncrementScore(ctx, "one.com.tr", 1))
		require.NoError(t, svc.IncrementScore(ctx, "two.com.tr", 1))

		found, err := svc.FindHostByDomain(ctx, "one.com.tr")
		require.NoError(t, err)
		assert.Equal(t, 2.0, found.Score)

		require.NoError(t, svc.ZeroScores(ctx))

		hosts, err := svc.FindHosts(ctx)
		require.NoError(t, err)
		for _, h := range hosts {
			assert.Zero(t, h.Score)
		}
	})

	t.Run("increment returns ENOTFOUND for unknown domain", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		s := db.NewSession()
		svc := sqlstore.NewHostService(s)

		err := svc.IncrementScore(context.Background(), "missing.com.tr", 1)
		require.Error(t, err)
		assert.Equal(t, bulgu.ENOTFOUND, bulgu.ErrorCode(err))
	})
}

func TestHostService_RemoveDuplicateHosts(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	s := db.NewSession()
	svc := sqlstore.NewHostService(s)
	ctx := context.Background()

	require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "a.com.tr"}))
	require.NoError(t, svc.UpsertHost(ctx, &bulgu.Host{Domain: "b.com.tr"}))

	require.NoError(t, svc.RemoveDuplicateHosts(ctx))

	n, err := svc.CountHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
