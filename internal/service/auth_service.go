package service

import (
	"context"
	"enliven_backend/internal/config"
	"enliven_backend/internal/model"
	"enliven_backend/internal/repository"
	"enliven_backend/internal/util"
	"enliven_backend/pkg/logger"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 创建账号并直接签发令牌
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, string, error) {
	email = normalizeEmail(email)
	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", util.ErrEmailRegistered
	} else if !errors.Is(err, util.ErrUserNotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.UserRepo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, util.ErrUserNotFound) {
		return nil, "", util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	if err := s.UserRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Failed to record last login", zap.Uint("userID", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	return user, token, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	return s.UserRepo.FindByID(ctx, userID)
}
