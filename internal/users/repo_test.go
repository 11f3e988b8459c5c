package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/testutil"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/enums"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	conn := testutil.OpenDB(t, "users")
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{Name: "Asha", Phone: "9000000001", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleCustomer, created.Role)
	assert.False(t, created.IsVerified)

	byPhone, err := repo.FindByPhone(ctx, "9000000001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPhone.ID)

	_, err = repo.Create(ctx, CreateUserDTO{Name: "Dup", Phone: "9000000001", PasswordHash: "h"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRepositoryOTPLifecycle(t *testing.T) {
	conn := testutil.OpenDB(t, "users_otp")
	repo := NewRepository(conn)
	ctx := context.Background()

	fresh := testutil.MustUser(t, conn, enums.UserRoleCustomer)
	stale := testutil.MustUser(t, conn, enums.UserRoleRetailer)

	now := time.Now().UTC()
	require.NoError(t, repo.SetOTP(ctx, fresh.ID, "fresh-hash", now.Add(10*time.Minute)))
	require.NoError(t, repo.SetOTP(ctx, stale.ID, "stale-hash", now.Add(-time.Minute)))

	cleared, err := repo.ClearExpiredOTPs(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	reloaded, err := repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.OTPHash)
	assert.Equal(t, "fresh-hash", *reloaded.OTPHash)

	require.NoError(t, repo.MarkVerified(ctx, fresh.ID))
	reloaded, err = repo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsVerified)
	assert.Nil(t, reloaded.OTPHash)
	assert.Nil(t, reloaded.OTPExpiresAt)
}

func TestRepositoryPushTokenAndBatchLookup(t *testing.T) {
	conn := testutil.OpenDB(t, "users_push")
	repo := NewRepository(conn)
	ctx := context.Background()

	a := testutil.MustUser(t, conn, enums.UserRoleCustomer)
	b := testutil.MustUser(t, conn, enums.UserRoleWholesaler)

	require.NoError(t, repo.SetPushToken(ctx, a.ID, "device-token"))
	assert.ErrorIs(t, repo.SetPushToken(ctx, uuid.New(), "x"), gorm.ErrRecordNotFound)

	found, err := repo.FindByIDs(ctx, []uuid.UUID{a.ID, b.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.NotNil(t, found[a.ID].PushToken)
	assert.Equal(t, "device-token", *found[a.ID].PushToken)
}
