package repository

import (
	"context"
	"testing"
	"time"

	"stakeledger/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStakeRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	stakes := NewStakeRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, id := range []int64{42, 43} {
		_, err := accounts.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	t.Run("positions are sequential per account", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			stake := testutil.CreateTestStake(42, now)
			require.NoError(t, stakes.Create(ctx, stake))
			assert.Equal(t, int64(i), stake.Position)
			assert.NotZero(t, stake.ID)
			assert.False(t, stake.Released)
		}
	})

	t.Run("positions are independent across accounts", func(t *testing.T) {
		stake := testutil.CreateTestStake(43, now)
		require.NoError(t, stakes.Create(ctx, stake))
		assert.Equal(t, int64(0), stake.Position)
	})

	t.Run("positions are never reused after release", func(t *testing.T) {
		existing, err := stakes.GetByAccountAndPosition(ctx, 42, 1)
		require.NoError(t, err)
		require.NotNil(t, existing)

		released, err := stakes.MarkReleased(ctx, existing.ID, 1, now)
		require.NoError(t, err)
		require.True(t, released)

		// The next stake appends past the highest position ever used; the
		// released middle position stays retrievable at its old address.
		next := testutil.CreateTestStake(42, now)
		require.NoError(t, stakes.Create(ctx, next))
		assert.Equal(t, int64(3), next.Position)

		old, err := stakes.GetByAccountAndPosition(ctx, 42, 1)
		require.NoError(t, err)
		require.NotNil(t, old)
		assert.True(t, old.Released)
	})
}

func TestStakeRepository_GetByAccountAndPosition(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	stakes := NewStakeRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := accounts.GetOrCreate(ctx, 42)
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		stake, err := stakes.GetByAccountAndPosition(ctx, 42, 0)
		require.NoError(t, err)
		assert.Nil(t, stake)
	})

	t.Run("round trips all fields", func(t *testing.T) {
		created := testutil.CreateTestStakeWithAmount(42, now, 5_000)
		require.NoError(t, stakes.Create(ctx, created))

		got, err := stakes.GetByAccountAndPosition(ctx, 42, created.Position)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, int64(5_000), got.Amount)
		assert.Equal(t, int64(2000), got.RateBps)
		assert.Equal(t, 30, got.DurationDays)
		assert.True(t, got.StakedAt.Equal(now))
		assert.True(t, got.MaturesAt.Equal(now.AddDate(0, 0, 30)))
		assert.Nil(t, got.ReleasedAt)
	})
}

func TestStakeRepository_MarkReleased(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	stakes := NewStakeRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := accounts.GetOrCreate(ctx, 42)
	require.NoError(t, err)

	stake := testutil.CreateTestStake(42, now)
	require.NoError(t, stakes.Create(ctx, stake))

	t.Run("first release wins", func(t *testing.T) {
		released, err := stakes.MarkReleased(ctx, stake.ID, 1, now)
		require.NoError(t, err)
		assert.True(t, released)

		got, err := stakes.GetByAccountAndPosition(ctx, 42, stake.Position)
		require.NoError(t, err)
		assert.True(t, got.Released)
		assert.Equal(t, int64(1), got.Earnings)
		require.NotNil(t, got.ReleasedAt)
		assert.True(t, got.ReleasedAt.Equal(now))
	})

	t.Run("second release is rejected", func(t *testing.T) {
		released, err := stakes.MarkReleased(ctx, stake.ID, 1, now)
		require.NoError(t, err)
		assert.False(t, released)
	})

	t.Run("unknown stake", func(t *testing.T) {
		released, err := stakes.MarkReleased(ctx, 99999, 1, now)
		require.NoError(t, err)
		assert.False(t, released)
	})
}

func TestStakeRepository_GetMaturedUnreleased(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	accounts := NewAccountRepository(testDB.DB)
	stakes := NewStakeRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	for _, id := range []int64{42, 43} {
		_, err := accounts.GetOrCreate(ctx, id)
		require.NoError(t, err)
	}

	// Matured yesterday.
	past := testutil.CreateTestStake(42, now.AddDate(0, 0, -31))
	past.MaturesAt = now.AddDate(0, 0, -1)
	require.NoError(t, stakes.Create(ctx, past))

	// Matures at exactly the query instant.
	boundary := testutil.CreateTestStake(43, now.AddDate(0, 0, -30))
	boundary.MaturesAt = now
	require.NoError(t, stakes.Create(ctx, boundary))

	// Matures tomorrow.
	future := testutil.CreateTestStake(42, now)
	future.MaturesAt = now.AddDate(0, 0, 1)
	require.NoError(t, stakes.Create(ctx, future))

	// Matured but already released.
	done := testutil.CreateTestStake(43, now.AddDate(0, 0, -31))
	done.MaturesAt = now.AddDate(0, 0, -1)
	require.NoError(t, stakes.Create(ctx, done))
	released, err := stakes.MarkReleased(ctx, done.ID, 1, now)
	require.NoError(t, err)
	require.True(t, released)

	matured, err := stakes.GetMaturedUnreleased(ctx, now)
	require.NoError(t, err)
	require.Len(t, matured, 2)

	// Ordered by maturity, and the boundary stake is included.
	assert.Equal(t, past.ID, matured[0].ID)
	assert.Equal(t, boundary.ID, matured[1].ID)
}
