package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront_v1_202610/internal/api/dto"
	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/model"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/pkg/logger"
	"storefront_v1_202610/pkg/utils"
)

// 密码重置参数
const (
	ResetCodeTTL         = 15 * time.Minute
	ResetTokenTTL        = 30 * time.Minute
	ResetCodeMaxAttempts = 5
	MinPasswordLength    = 8
)

// ResetCodeSender 下发重置验证码（Telegram）
type ResetCodeSender interface {
	SendResetCode(chatID int64, code string)
}

// ==================== AuthService 认证与账户 ====================

// AuthService 注册、登录、个人资料、密码重置
type AuthService struct {
	uow    *repository.UnitOfWork
	sender ResetCodeSender
	now    func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(uow *repository.UnitOfWork, sender ResetCodeSender) *AuthService {
	return &AuthService{uow: uow, sender: sender, now: time.Now}
}

// ==================== 注册 / 登录 ====================

// Register 注册并直接登录
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: 邮箱不能为空", ErrInvalidInput)
	}
	if len(req.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	exists, err := s.uow.Users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashed),
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         model.RoleCustomer,
		Status:       model.UserStatusActive,
	}
	if err := s.uow.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.uow.Users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 检查状态
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	// 更新最后登录时间
	if err := s.uow.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.L().Warn("更新最后登录时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return resp, nil
}

// Refresh 用 Refresh Token 换新的 Token 对
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.LoginResponse, error) {
	claims, err := middleware.ParseToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// 验证是否为 Refresh Token
	if claims.Subject != middleware.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	// 确保用户仍然有效，角色以数据库为准
	user, err := s.uow.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	return s.issueTokens(user)
}

// ==================== 个人资料 ====================

// Me 当前用户信息
func (s *AuthService) Me(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// UpdateProfile 修改姓名 / 电话
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(fields) > 0 {
		if err := s.uow.Users.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}

	return s.Me(ctx, userID)
}

// ChangePassword 修改密码
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	// 验证旧密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrInvalidOldPassword
	}
	if len(req.NewPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.uow.Users.UpdatePassword(ctx, userID, string(hashed))
}

// ==================== 密码重置（Telegram 下发验证码） ====================

// RequestReset 生成 6 位验证码发到已绑定的 Telegram
// 邮箱不存在或未绑定 Telegram 时同样返回成功，不暴露账户信息
func (s *AuthService) RequestReset(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	user, err := s.uow.Users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if user == nil || !user.HasTelegram() || user.Status != model.UserStatusActive {
		logger.L().Info("密码重置请求被忽略", zap.String("email", normalizeEmail(req.Email)))
		return nil
	}

	code, err := utils.RandomDigits(6)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := s.now()
	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		// 旧的验证码全部作废
		if err := tx.Codes.InvalidateResetCodes(ctx, user.ID, now); err != nil {
			return err
		}
		return tx.Codes.CreateResetCode(ctx, &model.PasswordResetCode{
			UserID:    user.ID,
			CodeHash:  string(hashed),
			ExpiresAt: now.Add(ResetCodeTTL),
		})
	})
	if err != nil {
		return err
	}

	if s.sender != nil {
		s.sender.SendResetCode(*user.TelegramChatID, code)
	}
	return nil
}

// VerifyResetCode 校验验证码，通过后签发一次性重置令牌
func (s *AuthService) VerifyResetCode(ctx context.Context, req *dto.VerifyResetCodeRequest) (*dto.VerifyResetCodeResponse, error) {
	user, err := s.uow.Users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidResetCode
	}

	now := s.now()
	code, err := s.uow.Codes.GetActiveResetCode(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, ErrInvalidResetCode
	}
	// 先占用次数再比对，并发猜码也只能用掉 ResetCodeMaxAttempts 次
	ok, err := s.uow.Codes.ReserveResetAttempt(ctx, code.ID, ResetCodeMaxAttempts)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTooManyAttempts
	}

	if err := bcrypt.CompareHashAndPassword([]byte(code.CodeHash), []byte(req.Code)); err != nil {
		if code.Attempts+1 >= ResetCodeMaxAttempts {
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidResetCode
	}

	raw, err := utils.RandomToken(32)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(ResetTokenTTL)

	err = s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		ok, err := tx.Codes.MarkResetCodeUsed(ctx, code.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidResetCode
		}
		return tx.Codes.CreateResetToken(ctx, &model.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: utils.SHA256Hex(raw),
			ExpiresAt: expiresAt,
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.VerifyResetCodeResponse{ResetToken: raw, ExpiresAt: expiresAt}, nil
}

// ResetPassword 消费重置令牌并设置新密码
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	if len(req.NewPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	token, err := s.uow.Codes.GetResetTokenByHash(ctx, utils.SHA256Hex(req.ResetToken))
	if err != nil {
		return err
	}
	now := s.now()
	if token == nil || token.UsedAt != nil || !now.Before(token.ExpiresAt) {
		return ErrInvalidResetToken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.uow.Transaction(ctx, func(tx *repository.UnitOfWork) error {
		ok, err := tx.Codes.MarkResetTokenUsed(ctx, token.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidResetToken
		}
		return tx.Users.UpdatePassword(ctx, token.UserID, string(hashed))
	})
}

// ==================== 管理员 ====================

// EnsureAdmin 启动时确保管理员账号存在；已存在的账号只提升角色，不覆盖密码
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	user, err := s.uow.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user != nil {
		if user.Role == model.RoleAdmin && user.Status == model.UserStatusActive {
			return nil
		}
		return s.uow.Users.UpdateFields(ctx, user.ID, map[string]interface{}{
			"role":   model.RoleAdmin,
			"status": model.UserStatusActive,
		})
	}

	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.uow.Users.Create(ctx, &model.User{
		Email:        email,
		PasswordHash: string(hashed),
		Name:         "Admin",
		Role:         model.RoleAdmin,
		Status:       model.UserStatusActive,
	})
}

// ListUsers 用户列表
func (s *AuthService) ListUsers(ctx context.Context, req *dto.UserListRequest) (*dto.UserListResponse, error) {
	users, total, err := s.uow.Users.List(ctx, repository.UserFilter{
		Keyword:  req.Keyword,
		Role:     req.Role,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	list := make([]*dto.UserInfo, len(users))
	for i := range users {
		list[i] = toUserInfo(&users[i])
	}

	return &dto.UserListResponse{
		List:  list,
		Total: total,
	}, nil
}

// ==================== 辅助方法 ====================

func (s *AuthService) getUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.uow.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *AuthService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	accessToken, refreshToken, err := middleware.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	cfg := middleware.GetJWTConfig()
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.now().Add(cfg.AccessTokenTTL),
		User:         toUserInfo(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// toUserInfo 转换为 DTO
func toUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		Phone:            user.Phone,
		Role:             user.Role,
		Status:           user.Status,
		TelegramLinked:   user.HasTelegram(),
		TelegramUsername: user.TelegramUsername,
		LastLoginAt:      user.LastLoginAt,
		CreatedAt:        user.CreatedAt,
	}
}

// ==================== 错误定义 ====================

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserDisabled       = errors.New("用户已禁用")
	ErrInvalidToken       = errors.New("Token 无效")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidOldPassword = errors.New("旧密码错误")
	ErrEmailExists        = errors.New("邮箱已存在")
	ErrPasswordTooShort   = errors.New("密码至少 8 位")
	ErrInvalidResetCode   = errors.New("验证码错误或已过期")
	ErrTooManyAttempts    = errors.New("验证码错误次数过多，请重新获取")
	ErrInvalidResetToken  = errors.New("重置链接无效或已过期")
)
