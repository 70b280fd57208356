package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute), mr
}

func sampleTB() *TrialBalance {
	return BuildTrialBalance([]AccountTotal{
		{AccountID: 1, Code: "2800", Class: ClassAsset, Debit: dec("100.00")},
		{AccountID: 2, Code: "8000", Class: ClassRevenue, Credit: dec("100.00")},
	})
}

func TestCacheComputesOnceThenServesCached(t *testing.T) {
	cache, _ := testCache(t)
	q := Query{OrgID: 1}

	builds := 0
	build := func(context.Context) (*TrialBalance, error) {
		builds++
		return sampleTB(), nil
	}

	first, err := cache.TrialBalance(context.Background(), q, build)
	require.NoError(t, err)
	second, err := cache.TrialBalance(context.Background(), q, build)
	require.NoError(t, err)

	require.Equal(t, 1, builds)
	require.True(t, first.TotalDebit.Equal(second.TotalDebit))
	require.Len(t, second.Accounts, 2)
}

func TestCacheInvalidateForcesRebuild(t *testing.T) {
	cache, _ := testCache(t)
	q := Query{OrgID: 1}

	builds := 0
	build := func(context.Context) (*TrialBalance, error) {
		builds++
		return sampleTB(), nil
	}

	_, err := cache.TrialBalance(context.Background(), q, build)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(context.Background(), 1))
	_, err = cache.TrialBalance(context.Background(), q, build)
	require.NoError(t, err)
	require.Equal(t, 2, builds)
}

func TestCacheScopesAreIndependent(t *testing.T) {
	cache, _ := testCache(t)

	builds := 0
	build := func(context.Context) (*TrialBalance, error) {
		builds++
		return sampleTB(), nil
	}

	_, err := cache.TrialBalance(context.Background(), Query{OrgID: 1}, build)
	require.NoError(t, err)
	_, err = cache.TrialBalance(context.Background(), Query{OrgID: 1, PropertyID: 7}, build)
	require.NoError(t, err)
	require.Equal(t, 2, builds)
}

func TestCacheNilClientFallsThrough(t *testing.T) {
	var cache *Cache

	builds := 0
	tb, err := cache.TrialBalance(context.Background(), Query{OrgID: 1}, func(context.Context) (*TrialBalance, error) {
		builds++
		return sampleTB(), nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, builds)
	require.NotNil(t, tb)
}
