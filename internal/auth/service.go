package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/internal/users"
	pkgAuth "github.com/blissmart/marketplace-backend/pkg/auth"
	"github.com/blissmart/marketplace-backend/pkg/auth/session"
	"github.com/blissmart/marketplace-backend/pkg/config"
	"github.com/blissmart/marketplace-backend/pkg/db"
	"github.com/blissmart/marketplace-backend/pkg/db/models"
	"github.com/blissmart/marketplace-backend/pkg/enums"
	pkgerrors "github.com/blissmart/marketplace-backend/pkg/errors"
	"github.com/blissmart/marketplace-backend/pkg/logger"
	"github.com/blissmart/marketplace-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid phone or password"
	defaultOTPTTL             = 10 * time.Minute
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*VerifyOTPResponse, error)
	ResendOTP(ctx context.Context, req ResendOTPRequest) (*ResendOTPResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*RefreshResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetOTP(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	users       userRepository
	session     sessionManager
	otpSender   OTPSender
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	otpTTL      time.Duration
	exposeOTP   bool
	logg        *logger.Logger
	now         func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	OTPSender      OTPSender
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	OTPConfig      config.OTPConfig
	// ExposeOTP echoes codes in responses; callers must keep it off in prod.
	ExposeOTP bool
	Logger    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	sender := params.OTPSender
	if sender == nil {
		sender = NewLogSender(params.Logger)
	}
	ttl := params.OTPConfig.TTL
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		otpSender:   sender,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		otpTTL:      ttl,
		exposeOTP:   params.ExposeOTP,
		logg:        params.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	phone := normalizePhone(req.Phone)
	name := strings.TrimSpace(req.Name)
	if phone == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and phone are required")
	}

	role := enums.UserRoleCustomer
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := enums.ParseUserRole(req.Role)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
		}
		role = parsed
	}

	var email *string
	if req.Email != nil {
		if trimmed := strings.ToLower(strings.TrimSpace(*req.Email)); trimmed != "" {
			email = &trimmed
		}
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	code, otpHash, expiresAt, err := s.issueOTP()
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Phone:        phone,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Address:      req.Address,
		OTPHash:      &otpHash,
		OTPExpiresAt: &expiresAt,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, duplicateMessage(err))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	s.deliverOTP(ctx, user.Phone, code)

	return &RegisterResponse{
		UserID:  user.ID.String(),
		Message: "registration successful, verify the OTP sent to your phone",
		User:    users.FromModel(user),
		OTP:     s.echo(code),
	}, nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*VerifyOTPResponse, error) {
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return &VerifyOTPResponse{Message: "account already verified", User: users.FromModel(user)}, nil
	}
	if user.OTPHash == nil || user.OTPExpiresAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no active OTP, request a new one")
	}
	if s.now().After(*user.OTPExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "OTP expired, request a new one")
	}

	ok, err := security.VerifyOTP(strings.TrimSpace(req.OTP), *user.OTPHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify otp")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid OTP")
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark user verified")
	}
	user.IsVerified = true
	user.OTPHash = nil
	user.OTPExpiresAt = nil

	accessToken, refreshToken, err := s.mintSession(ctx, user.ID, user.Role, s.now())
	if err != nil {
		return nil, err
	}
	return &VerifyOTPResponse{
		Message:      "account verified",
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) ResendOTP(ctx context.Context, req ResendOTPRequest) (*ResendOTPResponse, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case strings.TrimSpace(req.UserID) != "":
		id, parseErr := uuid.Parse(strings.TrimSpace(req.UserID))
		if parseErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid userId")
		}
		user, err = s.loadUser(ctx, id)
	case normalizePhone(req.Phone) != "":
		user, err = s.users.FindByPhone(ctx, normalizePhone(req.Phone))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		} else if err != nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId or phone is required")
	}
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account already verified")
	}

	code, otpHash, expiresAt, err := s.issueOTP()
	if err != nil {
		return nil, err
	}
	if err := s.users.SetOTP(ctx, user.ID, otpHash, expiresAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store otp")
	}
	s.deliverOTP(ctx, user.Phone, code)

	return &ResendOTPResponse{
		UserID:  user.ID.String(),
		Message: "a new OTP has been sent",
		OTP:     s.echo(code),
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Phone, req.Password)
	if err != nil {
		return nil, err
	}
	if !user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account not verified").
			WithDetails(map[string]any{"needsVerification": true, "userId": user.ID.String()})
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	accessToken, refreshToken, err := s.mintSession(ctx, user.ID, user.Role, now)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*RefreshResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	rotation, err := s.session.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}
	if rotation.UserID != claims.UserID {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	// Role is reloaded so a changed account role takes effect on refresh.
	user, err := s.loadUser(ctx, rotation.UserID)
	if err != nil {
		_ = s.session.Revoke(ctx, rotation.AccessID)
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, err
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    rotation.AccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &RefreshResponse{AccessToken: token, RefreshToken: rotation.RefreshToken}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if err := s.session.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, phone, password string) (*models.User, error) {
	input := normalizePhone(phone)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByPhone(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) mintSession(ctx context.Context, userID uuid.UUID, role enums.UserRole, now time.Time) (string, string, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    accessID,
	})
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID, userID)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return accessToken, refreshToken, nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return user, nil
}

func (s *service) issueOTP() (code, hash string, expiresAt time.Time, err error) {
	code, err = security.GenerateOTP(security.OTPDigits)
	if err != nil {
		return "", "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate otp")
	}
	hash, err = security.HashOTP(code)
	if err != nil {
		return "", "", time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash otp")
	}
	return code, hash, s.now().Add(s.otpTTL), nil
}

func (s *service) deliverOTP(ctx context.Context, phone, code string) {
	if err := s.otpSender.SendOTP(ctx, phone, code); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "otp delivery failed")
	}
}

func (s *service) echo(code string) *string {
	if !s.exposeOTP {
		return nil
	}
	return &code
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

func duplicateMessage(err error) string {
	constraint := db.ViolatedConstraint(err)
	if strings.Contains(constraint, "email") || (constraint == "" && strings.Contains(err.Error(), "email")) {
		return "email already registered"
	}
	return "phone number already registered"
}
