package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/cache"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
	"github.com/d60-Lab/blogapi/internal/repository"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var errBadCredentials = apperr.Unauthorized("invalid credentials")

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput login 可以是用户名或邮箱
type LoginInput struct {
	Login    string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenPair struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh"`
	ExpiresIn int64  `json:"expires_in"`
}

type LoginResult struct {
	TokenPair
	User UserView `json:"user"`
}

// Claims access 与 refresh 共用，靠 typ 区分
type Claims struct {
	Type     string     `json:"typ"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthOptions struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// AuthService 注册、登录、刷新、注销，以及把 bearer token 解析为身份
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*UserView, error)
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, caller identity.Identity, refreshToken, accessToken string) error
	Resolve(ctx context.Context, bearer string) (identity.Identity, error)
}

type authService struct {
	users   repository.UserRepository
	revoked cache.RevocationStore
	feed    *cache.FeedCache
	opts    AuthOptions
	now     func() time.Time
}

func NewAuthService(users repository.UserRepository, revoked cache.RevocationStore, feed *cache.FeedCache, opts AuthOptions) AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{users: users, revoked: revoked, feed: feed, opts: opts, now: time.Now}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*UserView, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := checkInput(in); err != nil {
		return nil, err
	}
	taken, err := s.users.ExistsUsername(ctx, in.Username, 0)
	if err != nil {
		return nil, storeErr(err, "")
	}
	if taken {
		return nil, apperr.Conflict("username already taken")
	}
	if taken, err = s.users.ExistsEmail(ctx, in.Email); err != nil {
		return nil, storeErr(err, "")
	}
	if taken {
		return nil, apperr.Conflict("email already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         model.RoleGuest,
		Bio:          model.DefaultBio,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperr.Conflict("username or email already registered")
		}
		return nil, storeErr(err, "")
	}
	s.feed.Invalidate(ctx)
	v := newUserView(u, true)
	return &v, nil
}

func (s *authService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Login = strings.TrimSpace(in.Login)
	if err := checkInput(in); err != nil {
		return nil, err
	}
	u, err := s.users.GetByLogin(ctx, in.Login)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errBadCredentials
		}
		return nil, storeErr(err, "")
	}
	if !u.IsActive || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, errBadCredentials
	}
	pair, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{TokenPair: *pair, User: newUserView(u, true)}, nil
}

// Refresh 签发新的 access token，refresh token 原样返回
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(ctx, refreshToken, tokenRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	access, err := s.sign(u, tokenAccess, s.opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refreshToken, ExpiresIn: int64(s.opts.AccessTTL.Seconds())}, nil
}

// Logout 吊销 refresh token 以及本次请求携带的 access token
func (s *authService) Logout(ctx context.Context, caller identity.Identity, refreshToken, accessToken string) error {
	if err := caller.Require(); err != nil {
		return err
	}
	if strings.TrimSpace(refreshToken) == "" {
		return apperr.Validation("refresh: this field is required")
	}
	claims, err := s.parse(ctx, refreshToken, tokenRefresh)
	if err != nil {
		return apperr.Validation("token is invalid or expired")
	}
	if claims.Subject != strconv.FormatUint(caller.UserID, 10) {
		return apperr.Validation("token does not belong to the current user")
	}
	if err := s.revoke(ctx, claims); err != nil {
		return err
	}
	if accessToken != "" {
		if ac, err := s.parse(ctx, accessToken, tokenAccess); err == nil {
			return s.revoke(ctx, ac)
		}
	}
	return nil
}

func (s *authService) Resolve(ctx context.Context, bearer string) (identity.Identity, error) {
	claims, err := s.parse(ctx, bearer, tokenAccess)
	if err != nil {
		return identity.Anonymous, err
	}
	u, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return identity.Anonymous, err
	}
	return identity.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *authService) issuePair(u *model.User) (*TokenPair, error) {
	access, err := s.sign(u, tokenAccess, s.opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(u, tokenRefresh, s.opts.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh, ExpiresIn: int64(s.opts.AccessTTL.Seconds())}, nil
}

func (s *authService) sign(u *model.User, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		Type:     typ,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.opts.Issuer,
			Subject:   strconv.FormatUint(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.Secret))
	if err != nil {
		return "", apperr.Internal("sign token", err)
	}
	return signed, nil
}

func (s *authService) parse(ctx context.Context, raw, typ string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Unauthorized("authentication credentials were not provided")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.opts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.opts.Issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("token is expired")
		}
		return nil, apperr.Unauthorized("token is invalid")
	}
	if claims.Type != typ {
		return nil, apperr.Unauthorized("token has wrong type")
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Internal("check token revocation", err)
	}
	if revoked {
		return nil, apperr.Unauthorized("token has been revoked")
	}
	return claims, nil
}

func (s *authService) revoke(ctx context.Context, c *Claims) error {
	ttl := c.ExpiresAt.Time.Sub(s.now())
	if err := s.revoked.Revoke(ctx, c.ID, ttl); err != nil {
		return apperr.Internal("revoke token", err)
	}
	return nil
}

func (s *authService) activeUser(ctx context.Context, subject string) (*model.User, error) {
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return nil, apperr.Unauthorized("token is invalid")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Unauthorized("user not found")
		}
		return nil, storeErr(err, "")
	}
	if !u.IsActive {
		return nil, apperr.Unauthorized("user is inactive")
	}
	return u, nil
}
