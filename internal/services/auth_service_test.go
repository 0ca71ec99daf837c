package services

import (
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/config"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/dto"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/models"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/health-manager/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuth(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWTSecret:        testutil.JWTSecret,
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
	return NewAuthService(db, cfg), db
}

func register(t *testing.T, svc *AuthService, username string) *dto.AuthResponse {
	t.Helper()
	resp, err := svc.Register(&dto.RegisterRequest{
		Username: username,
		Email:    username + "@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister(t *testing.T) {
	svc, _ := newAuth(t)

	resp := register(t, svc, "ada")
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "ada", resp.User.Name)
	assert.Equal(t, "user", resp.User.Role)

	tok, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte(testutil.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.ID.String(), claims["sub"])
	assert.Equal(t, "ada", claims["username"])

	_, err = svc.Register(&dto.RegisterRequest{Username: "ada", Email: "other@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = svc.Register(&dto.RegisterRequest{Username: "other", Email: "ADA@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterDuplicateRacingTheExistenceCheck(t *testing.T) {
	svc, db := newAuth(t)
	first := register(t, svc, "ada")

	// A soft-deleted row is invisible to the existence check but still holds
	// the unique indexes, like a concurrent insert would.
	require.NoError(t, db.Delete(&models.User{}, "id = ?", first.User.ID).Error)

	_, err := svc.Register(&dto.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuth(t)

	cases := []dto.RegisterRequest{
		{Username: "ab", Email: "ab@example.com", Password: "correct-horse"},
		{Username: "abc", Email: "not-an-email", Password: "correct-horse"},
		{Username: "abc", Email: "abc@example.com", Password: "short"},
	}
	for _, req := range cases {
		req := req
		_, err := svc.Register(&req)
		assert.True(t, validation.IsInvalid(err), "%+v", req)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newAuth(t)
	register(t, svc, "ada")

	_, err := svc.Login(&dto.LoginRequest{Identifier: "ada", Password: "correct-horse"})
	assert.NoError(t, err)
	_, err = svc.Login(&dto.LoginRequest{Identifier: "ADA@example.com", Password: "correct-horse"})
	assert.NoError(t, err)

	_, err = svc.Login(&dto.LoginRequest{Identifier: "ada", Password: "wrong-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(&dto.LoginRequest{Identifier: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, db := newAuth(t)
	first := register(t, svc, "ada")

	second, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: first.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.Logout(&dto.LogoutRequest{RefreshToken: second.RefreshToken}))
	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: second.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)

	third, err := svc.Login(&dto.LoginRequest{Identifier: "ada", Password: "correct-horse"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(third.RefreshToken)).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)
	_, err = svc.Refresh(&dto.RefreshRequest{RefreshToken: third.RefreshToken})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshLosesToConcurrentRotation(t *testing.T) {
	svc, db := newAuth(t)
	first := register(t, svc, "ada")

	// Another request revokes the token between the lookup and the update.
	fired := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:concurrent_refresh", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "refresh_tokens" {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE refresh_tokens SET revoked = ?", true)
	}))

	_, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: first.RefreshToken})
	assert.True(t, fired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	var live int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("revoked = ?", false).Count(&live).Error)
	assert.Zero(t, live)
}

type recordingPurger struct {
	purged   []uuid.UUID
	afterRan bool
	fail     bool
}

func (p *recordingPurger) PurgeUserData(_ *gorm.DB, userID uuid.UUID) (func(), error) {
	if p.fail {
		return nil, errors.New("purge failed")
	}
	p.purged = append(p.purged, userID)
	return func() { p.afterRan = true }, nil
}

func TestDeleteAccount(t *testing.T) {
	svc, db := newAuth(t)
	resp := register(t, svc, "ada")
	id := resp.User.ID
	purger := &recordingPurger{}
	svc.AddPurger(purger)

	require.NoError(t, db.Create(&models.ReminderLog{
		Kind: models.ReminderKindMedication, RefID: uuid.New(), SlotKey: "2025-01-01T08", UserID: id, SentAt: time.Now(),
	}).Error)

	assert.ErrorIs(t, svc.DeleteAccount(id, ""), ErrPasswordRequired)
	assert.ErrorIs(t, svc.DeleteAccount(id, "wrong-horse"), ErrInvalidCredentials)
	assert.Empty(t, purger.purged)

	require.NoError(t, svc.DeleteAccount(id, "correct-horse"))
	assert.Equal(t, []uuid.UUID{id}, purger.purged)
	assert.True(t, purger.afterRan)

	var n int64
	db.Unscoped().Model(&models.User{}).Where("id = ?", id).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.RefreshToken{}).Where("user_id = ?", id).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.ReminderLog{}).Where("user_id = ?", id).Count(&n)
	assert.Zero(t, n)

	_, err := svc.Me(id)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteAccountRollsBackOnPurgeFailure(t *testing.T) {
	svc, _ := newAuth(t)
	resp := register(t, svc, "ada")
	svc.AddPurger(&recordingPurger{fail: true})

	assert.Error(t, svc.DeleteAccount(resp.User.ID, "correct-horse"))

	me, err := svc.Me(resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", me.Username)
}
