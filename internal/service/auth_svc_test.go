package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/internal/testutil"
)

func newAuth(t *testing.T) (*AuthService, *fakeSender, *repository.UnitOfWork) {
	t.Helper()
	uow := repository.NewUnitOfWork(testutil.OpenDB(t))
	sender := &fakeSender{}
	return NewAuthService(uow, sender), sender, uow
}

func TestAuthService_RegisterLogin(t *testing.T) {
	auth, _, uow := newAuth(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, &dto.RegisterRequest{Email: " Buyer@Example.com ", Password: "secret123", Name: "Покупатель"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "buyer@example.com", resp.User.Email)
	assert.Equal(t, model.RoleCustomer, resp.User.Role)

	_, err = auth.Register(ctx, &dto.RegisterRequest{Email: "buyer@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = auth.Register(ctx, &dto.RegisterRequest{Email: "short@example.com", Password: "123"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	login, err := auth.Login(ctx, &dto.LoginRequest{Email: "BUYER@example.com", Password: "secret123"})
	require.NoError(t, err)

	claims, err := middleware.ParseToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "buyer@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// 刷新只接受 refresh token
	refreshed, err := auth.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = auth.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.AccessToken})
	assert.ErrorIs(t, err, ErrInvalidToken)

	// 禁用后拒绝登录和刷新
	require.NoError(t, uow.Users.UpdateFields(ctx, resp.User.ID, map[string]interface{}{"status": model.UserStatusDisabled}))
	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "buyer@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, ErrUserDisabled)
	_, err = auth.Refresh(ctx, &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestAuthService_Profile(t *testing.T) {
	auth, _, _ := newAuth(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, &dto.RegisterRequest{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)
	id := resp.User.ID

	name := "Анна"
	info, err := auth.UpdateProfile(ctx, id, &dto.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Анна", info.Name)

	err = auth.ChangePassword(ctx, id, &dto.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newsecret1"})
	assert.ErrorIs(t, err, ErrInvalidOldPassword)

	require.NoError(t, auth.ChangePassword(ctx, id, &dto.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newsecret1"}))
	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "a@example.com", Password: "newsecret1"})
	assert.NoError(t, err)

	_, err = auth.Me(ctx, 424242)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_PasswordReset(t *testing.T) {
	auth, sender, uow := newAuth(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, &dto.RegisterRequest{Email: "tg@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, uow.Users.LinkTelegram(ctx, resp.User.ID, 4242, "tguser"))

	// 未知邮箱同样成功，不发送
	require.NoError(t, auth.RequestReset(ctx, &dto.ForgotPasswordRequest{Email: "ghost@example.com"}))
	assert.Empty(t, sender.code)

	require.NoError(t, auth.RequestReset(ctx, &dto.ForgotPasswordRequest{Email: "tg@example.com"}))
	require.Len(t, sender.code, 6)
	assert.Equal(t, int64(4242), sender.chatID)
	code := sender.code

	_, err = auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: wrongCode(code)})
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	verified, err := auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: code})
	require.NoError(t, err)
	assert.NotEmpty(t, verified.ResetToken)

	// 验证码只能使用一次
	_, err = auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: code})
	assert.ErrorIs(t, err, ErrInvalidResetCode)

	require.NoError(t, auth.ResetPassword(ctx, &dto.ResetPasswordRequest{ResetToken: verified.ResetToken, NewPassword: "brandnew1"}))
	assert.ErrorIs(t, auth.ResetPassword(ctx, &dto.ResetPasswordRequest{ResetToken: verified.ResetToken, NewPassword: "brandnew2"}), ErrInvalidResetToken)

	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "tg@example.com", Password: "brandnew1"})
	assert.NoError(t, err)
}

func TestAuthService_ResetAttemptsAndExpiry(t *testing.T) {
	auth, sender, uow := newAuth(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, &dto.RegisterRequest{Email: "tg@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, uow.Users.LinkTelegram(ctx, resp.User.ID, 4242, "tguser"))
	require.NoError(t, auth.RequestReset(ctx, &dto.ForgotPasswordRequest{Email: "tg@example.com"}))
	code := sender.code

	for i := 0; i < ResetCodeMaxAttempts-1; i++ {
		_, err = auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: wrongCode(code)})
		assert.ErrorIs(t, err, ErrInvalidResetCode)
	}
	_, err = auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: wrongCode(code)})
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// 次数用完后正确的验证码也不再接受
	_, err = auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: code})
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// 重新申请后旧码作废，新码在过期后无效
	require.NoError(t, auth.RequestReset(ctx, &dto.ForgotPasswordRequest{Email: "tg@example.com"}))
	auth.now = func() time.Time { return time.Now().Add(ResetCodeTTL + time.Minute) }
	_, err = auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: sender.code})
	assert.ErrorIs(t, err, ErrInvalidResetCode)
}

func TestAuthService_ResetAttemptsConcurrent(t *testing.T) {
	auth, sender, uow := newAuth(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, &dto.RegisterRequest{Email: "tg@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, uow.Users.LinkTelegram(ctx, resp.User.ID, 4242, "tguser"))
	require.NoError(t, auth.RequestReset(ctx, &dto.ForgotPasswordRequest{Email: "tg@example.com"}))
	code := sender.code

	active, err := uow.Codes.GetActiveResetCode(ctx, resp.User.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, active)
	for i := 0; i < ResetCodeMaxAttempts-1; i++ {
		ok, err := uow.Codes.ReserveResetAttempt(ctx, active.ID, ResetCodeMaxAttempts)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// 只剩一次机会时并发猜码，合计次数不超过上限
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: wrongCode(code)})
			assert.ErrorIs(t, err, ErrTooManyAttempts)
		}()
	}
	wg.Wait()

	after, err := uow.Codes.GetActiveResetCode(ctx, resp.User.ID, time.Now())
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.Equal(t, ResetCodeMaxAttempts, after.Attempts)

	_, err = auth.VerifyResetCode(ctx, &dto.VerifyResetCodeRequest{Email: "tg@example.com", Code: code})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	auth, _, uow := newAuth(t)
	ctx := context.Background()

	require.NoError(t, auth.EnsureAdmin(ctx, "Admin@Shop.ru", "adminpass1"))
	admin, err := uow.Users.GetByEmail(ctx, "admin@shop.ru")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin())

	// 再次调用不修改密码
	require.NoError(t, auth.EnsureAdmin(ctx, "admin@shop.ru", "otherpass1"))
	_, err = auth.Login(ctx, &dto.LoginRequest{Email: "admin@shop.ru", Password: "adminpass1"})
	assert.NoError(t, err)

	users, err := auth.ListUsers(ctx, &dto.UserListRequest{Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(1), users.Total)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
