package checkoutstate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisRepo, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepo(client, time.Hour), mr
}

// repoContract runs the behaviour every Repo implementation must share.
func repoContract(t *testing.T, repo Repo) {
	ctx := context.Background()

	t.Run("unknown session loads fresh state", func(t *testing.T) {
		st, err := repo.Load(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, NewState(), st)
	})

	t.Run("mutations persist", func(t *testing.T) {
		sess := NewSession(repo, "s1")

		_, err := sess.SetCustomer(ctx, &Customer{ID: "c1", Email: "a@b.c"})
		require.NoError(t, err)
		require.NoError(t, sess.AddCardPaymentMethod(ctx, "tok"))
		_, err = sess.SelectPaymentMethod(ctx, CardPaymentID)
		require.NoError(t, err)

		st, err := sess.Snapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, st.Customer)
		assert.Equal(t, "c1", st.Customer.ID)
		require.Len(t, st.PaymentMethods, 2)
		sel, ok := st.Selected()
		require.True(t, ok)
		assert.Equal(t, CardPaymentID, sel.ID)
		assert.Equal(t, "tok", *sel.Token)
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		require.NoError(t, NewSession(repo, "iso-a").AddCardPaymentMethod(ctx, "tok"))

		st, err := repo.Load(ctx, "iso-b")
		require.NoError(t, err)
		assert.Len(t, st.PaymentMethods, 1)
	})

	t.Run("concurrent adds keep a single card entry", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, NewSession(repo, "race").AddCardPaymentMethod(ctx, "tok"))
			}()
		}
		wg.Wait()

		st, err := repo.Load(ctx, "race")
		require.NoError(t, err)
		assert.Len(t, st.PaymentMethods, 2)
	})

	t.Run("delete resets", func(t *testing.T) {
		require.NoError(t, NewSession(repo, "gone").AddCardPaymentMethod(ctx, "tok"))
		require.NoError(t, repo.Delete(ctx, "gone"))

		st, err := repo.Load(ctx, "gone")
		require.NoError(t, err)
		assert.Len(t, st.PaymentMethods, 1)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		_, err := repo.Load(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidSessionID)
		_, err = repo.Update(ctx, "", func(*State) {})
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})
}

func TestMemoryRepo(t *testing.T) {
	repoContract(t, NewMemoryRepo(time.Hour))
}

func TestRedisRepo(t *testing.T) {
	repo, _ := setupTestRedis(t)
	repoContract(t, repo)
}

func TestRedisRepo_SetsTTL(t *testing.T) {
	repo, mr := setupTestRedis(t)

	require.NoError(t, NewSession(repo, "ttl").AddCardPaymentMethod(context.Background(), "tok"))

	assert.Equal(t, time.Hour, mr.TTL(stateKey("ttl")))
}

func TestRedisRepo_CorruptPayload(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(stateKey("bad"), "{not json"))

	_, err := repo.Load(context.Background(), "bad")
	assert.Error(t, err)

	_, err = repo.Update(context.Background(), "bad", func(*State) {})
	assert.Error(t, err)
}

func TestRedisRepo_ConnectionError(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()

	_, err := repo.Load(context.Background(), "x")
	assert.Error(t, err)
}

func TestMemoryRepo_ExpiresUntouchedStates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo(time.Hour)
	repo.now = func() time.Time { return now }
	repo.swept = now

	require.NoError(t, NewSession(repo, "old").AddCardPaymentMethod(ctx, "tok"))
	require.NoError(t, NewSession(repo, "kept").AddCardPaymentMethod(ctx, "tok"))

	now = now.Add(50 * time.Minute)
	_, err := NewSession(repo, "kept").SelectPaymentMethod(ctx, CardPaymentID)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)

	st, err := repo.Load(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, NewState(), st)

	st, err = repo.Load(ctx, "kept")
	require.NoError(t, err)
	assert.Len(t, st.PaymentMethods, 2, "a write refreshes the ttl")
}

func TestMemoryRepo_SweepsOnWrite(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo(time.Hour)
	repo.now = func() time.Time { return now }
	repo.swept = now

	for i := 0; i < 100; i++ {
		require.NoError(t, NewSession(repo, fmt.Sprintf("s-%d", i)).AddCardPaymentMethod(ctx, "tok"))
	}
	require.Equal(t, 100, repo.Len())

	now = now.Add(2 * time.Hour)
	require.NoError(t, NewSession(repo, "fresh").AddCardPaymentMethod(ctx, "tok"))

	assert.Equal(t, 1, repo.Len())
}
