package service

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"example.com/shopcart/internal/model"
)

type AuthService interface {
	Register(ctx context.Context, fullname, email, password string) (model.User, error)
	Login(ctx context.Context, email, password string) (model.User, string, error) // user + session token
	ParseToken(token string) (uint, error)                                        // returns userID
}

type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret"`
	TokenTTL            time.Duration `yaml:"token_ttl"`
	BcryptCost          int           `yaml:"bcrypt_cost"`
	MaxConcurrentHashes int64         `yaml:"max_concurrent_hashes"`
}

type authService struct {
	db     *gorm.DB
	cfg    AuthConfig
	hashes *semaphore.Weighted
}

func NewAuthService(db *gorm.DB, cfg AuthConfig) AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.MaxConcurrentHashes <= 0 {
		cfg.MaxConcurrentHashes = int64(runtime.NumCPU())
	}
	return &authService{db: db, cfg: cfg, hashes: semaphore.NewWeighted(cfg.MaxConcurrentHashes)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ---------------------------------------------------
// Register
// ---------------------------------------------------

func (a *authService) Register(ctx context.Context, fullname, email, password string) (model.User, error) {
	fullname = strings.TrimSpace(fullname)
	email = normalizeEmail(email)
	switch {
	case fullname == "":
		return model.User{}, invalid("fullname", "is required")
	case email == "":
		return model.User{}, invalid("email", "is required")
	case password == "":
		return model.User{}, invalid("password", "is required")
	}

	var count int64
	if err := a.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return model.User{}, storeErr("check email", err)
	}
	if count > 0 {
		return model.User{}, ErrEmailTaken
	}

	hash, err := a.hash(ctx, password)
	if err != nil {
		return model.User{}, err
	}

	u := model.User{Username: fullname, Email: email, PasswordHash: string(hash)}
	if err := a.db.WithContext(ctx).Create(&u).Error; err != nil {
		// lost a race against a concurrent registration of the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, storeErr("create user", err)
	}
	zap.L().Info("user registered", zap.Uint("user_id", u.ID))
	return u, nil
}

// hash runs bcrypt behind the semaphore so a burst of registrations cannot
// take every CPU away from unrelated requests.
func (a *authService) hash(ctx context.Context, password string) ([]byte, error) {
	if err := a.hashes.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "wait for hash slot")
	}
	defer a.hashes.Release(1)
	h, err := bcrypt.GenerateFromPassword([]byte(password), a.cfg.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	return h, nil
}

func (a *authService) compare(ctx context.Context, hash, password string) error {
	if err := a.hashes.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "wait for hash slot")
	}
	defer a.hashes.Release(1)
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ---------------------------------------------------
// Login
// ---------------------------------------------------

func (a *authService) Login(ctx context.Context, email, password string) (model.User, string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.User{}, "", invalid("email", "is required")
	}
	if password == "" {
		return model.User{}, "", invalid("password", "is required")
	}

	var u model.User
	if err := a.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", storeErr("find user", err)
	}
	if err := a.compare(ctx, u.PasswordHash, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", err
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": u.ID,
		"typ": "session",
		"exp": time.Now().Add(a.cfg.TokenTTL).Unix(),
	})
	token, err := t.SignedString([]byte(a.cfg.JWTSecret))
	if err != nil {
		return model.User{}, "", errors.Wrap(err, "sign token")
	}
	return u, token, nil
}

// ---------------------------------------------------
// ParseToken
// ---------------------------------------------------

func (a *authService) ParseToken(token string) (uint, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, errors.Wrap(err, "parse token")
	}
	if claims["typ"] != "session" {
		return 0, errors.New("invalid token type")
	}
	idFloat, ok := claims["sub"].(float64)
	if !ok || idFloat <= 0 {
		return 0, errors.New("invalid sub")
	}
	return uint(idFloat), nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func isForeignKeyViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint")
}
