package service

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"wellbeing-backend/internal/models"
	"wellbeing-backend/internal/repository"
)

var jwtSecret = []byte("supersecretjwtkey")

func init() {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtSecret = []byte(secret)
	}
}

// GetJWTSecret returns the JWT secret key.
func GetJWTSecret() []byte {
	return jwtSecret
}

type AuthService interface {
	Register(username, password string) (*models.User, error)
	Login(username, password string) (string, time.Time, error)
	Logout(userID int64) error
}

type authService struct {
	repo     repository.AuthRepository
	notifier NotifyService
	logger   *zap.Logger
}

func NewAuthService(repo repository.AuthRepository, notifier NotifyService, logger *zap.Logger) AuthService {
	return &authService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *authService) Register(username, password string) (*models.User, error) {
	if username == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: username required and password must be at least 8 characters", ErrValidation)
	}

	exists, err := s.repo.UsernameExists(username)
	if err != nil {
		s.logger.Error("Failed to check existing users", zap.Error(err))
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	passwordHash, err := s.hashPassword(password)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         "member",
	}

	if err := s.repo.CreateUser(user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *authService) Login(username, password string) (string, time.Time, error) {
	user, err := s.repo.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, ErrInvalidCredentials
		}
		s.logger.Error("Failed to get user by username", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if !s.verifyPassword(user.PasswordHash, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &models.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username))

	return tokenString, expirationTime, nil
}

// Logout clears process-local notification dedup state so nothing leaks into
// the next session on the same device.
func (s *authService) Logout(userID int64) error {
	s.notifier.Reset()
	s.logger.Info("User logged out.", zap.Int64("user_id", userID))
	return nil
}

// hashPassword uses Argon2 to hash the password.
func (s *authService) hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, uint8(4), 32)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, 64*1024, 1, 4, encodedSalt, encodedHash), nil
}

// verifyPassword compares a plaintext password with a hashed password.
func (s *authService) verifyPassword(hashedPassword, password string) bool {
	var version int
	var m uint32
	var t uint32
	var p uint8
	var encodedSalt, encodedHash string

	n, err := fmt.Sscanf(hashedPassword, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &m, &t, &p, &encodedSalt)
	if err != nil || n != 5 {
		s.logger.Error("Invalid hash format", zap.Error(err))
		return false
	}

	// Sscanf's %s grabs the rest of the string; split salt and hash manually.
	for i := 0; i < len(encodedSalt); i++ {
		if encodedSalt[i] == '$' {
			encodedHash = encodedSalt[i+1:]
			encodedSalt = encodedSalt[:i]
			break
		}
	}
	if encodedHash == "" {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(encodedSalt)
	if err != nil {
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(expectedHash)))
	if len(computed) != len(expectedHash) {
		return false
	}
	for i := range computed {
		if computed[i] != expectedHash[i] {
			return false
		}
	}
	return true
}
