package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureauthx/secureauthx"
)

func TestDirectoryCreateAndFind(t *testing.T) {
	d := NewDirectory()
	ctx := context.Background()

	created, err := d.Create(ctx, "user@example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsAdmin)

	byEmail, err := d.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := d.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", byID.Email)

	_, err = d.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, secureauthx.ErrUserNotFound)
	_, err = d.FindByID(ctx, 99)
	assert.ErrorIs(t, err, secureauthx.ErrUserNotFound)
}

func TestDirectoryDuplicate(t *testing.T) {
	d := NewDirectory()
	ctx := context.Background()

	_, err := d.Create(ctx, "user@example.com", "hash")
	require.NoError(t, err)
	_, err = d.Create(ctx, "user@example.com", "other")
	assert.ErrorIs(t, err, secureauthx.ErrAlreadyRegistered)
}

func TestDirectoryReturnsCopies(t *testing.T) {
	d := NewDirectory()
	ctx := context.Background()

	created, err := d.Create(ctx, "user@example.com", "hash")
	require.NoError(t, err)
	created.IsAdmin = true

	again, err := d.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, again.IsAdmin)

	require.NoError(t, d.SetAdmin(created.ID, true))
	require.NoError(t, d.SetActive(created.ID, false))
	again, err = d.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, again.IsAdmin)
	assert.False(t, again.IsActive)

	require.NoError(t, d.UpdatePasswordHash(ctx, created.ID, "new"))
	again, _ = d.FindByID(ctx, created.ID)
	assert.Equal(t, "new", again.PasswordHash)
	assert.ErrorIs(t, d.SetActive(42, true), secureauthx.ErrUserNotFound)
}

func TestDirectoryConcurrentCreateSingleWinner(t *testing.T) {
	d := NewDirectory()
	const n = 16

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Create(context.Background(), "race@example.com", "hash")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, secureauthx.ErrAlreadyRegistered)
	}
	assert.Equal(t, 1, ok)
}
