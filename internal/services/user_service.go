package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
	"tontin/internal/token"
)

const verificationTokenTTL = 24 * time.Hour

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// CreateUser registers a new user and issues an email verification token.
func (s *userService) CreateUser(email, password, firstName, lastName, currency string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", strings.ToLower(email)).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if currency == "" {
		currency = "EUR"
	}

	user := &models.User{
		Email:     strings.ToLower(email),
		Password:  string(hashedPassword),
		FirstName: firstName,
		LastName:  lastName,
		Currency:  strings.ToUpper(currency),
		IsActive:  true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		vt := &models.VerificationToken{
			UserID:    user.ID,
			Token:     token.New(),
			Purpose:   models.TokenPurposeEmailVerify,
			ExpiresAt: time.Now().Add(verificationTokenTTL),
		}
		if err := tx.Create(vt).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByEmail retrieves an active user by email
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", strings.ToLower(email), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// VerifyPassword checks if the provided password matches the stored hash
func (s *userService) VerifyPassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// AttemptLogin authenticates a user and records the login time.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.VerifyPassword(user, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(user).Update("last_login_at", now).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// UpdateProfile updates the mutable profile fields of a user.
func (s *userService) UpdateProfile(userID uint, firstName, lastName, currency, avatar string) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if firstName != "" {
		updates["first_name"] = firstName
	}
	if lastName != "" {
		updates["last_name"] = lastName
	}
	if currency != "" {
		updates["currency"] = strings.ToUpper(currency)
	}
	if avatar != "" {
		updates["avatar"] = avatar
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// DeactivateUser soft-disables a user account.
func (s *userService) DeactivateUser(userID uint) error {
	res := s.db.Model(&models.User{}).Where("id = ? AND is_active = ?", userID, true).
		Updates(map[string]interface{}{"is_active": false, "refresh_token_hash": ""})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// StoreRefreshTokenHash persists the hash of the user's current refresh token.
func (s *userService) StoreRefreshTokenHash(userID uint, tokenHash string) error {
	if err := s.db.Model(&models.User{}).Where("id = ?", userID).
		Update("refresh_token_hash", tokenHash).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetRefreshTokenHash returns the stored refresh token hash for a user.
func (s *userService) GetRefreshTokenHash(userID uint) (string, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	return user.RefreshTokenHash, nil
}

// IssueVerificationToken creates a fresh single-use token, invalidating any
// unused token of the same purpose.
func (s *userService) IssueVerificationToken(userID uint, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	if _, err := s.GetUserByID(userID); err != nil {
		return nil, err
	}

	vt := &models.VerificationToken{
		UserID:    userID,
		Token:     token.New(),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(verificationTokenTTL),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VerificationToken{}).
			Where("user_id = ? AND purpose = ? AND is_used = ?", userID, purpose, false).
			Update("expires_at", time.Now()).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(vt).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vt, nil
}

// VerifyEmail consumes an email verification token and marks the user verified.
func (s *userService) VerifyEmail(tokenStr string) (*models.User, error) {
	var user *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		vt, err := s.consumeToken(tx, tokenStr, models.TokenPurposeEmailVerify)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", vt.UserID).
			Update("is_verified", true).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		var u models.User
		if err := tx.First(&u, vt.UserID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		user = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword consumes a password reset token and replaces the password.
// Any outstanding refresh token is revoked.
func (s *userService) ResetPassword(tokenStr, newPassword string) error {
	if newPassword == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "new password is required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		vt, err := s.consumeToken(tx, tokenStr, models.TokenPurposePasswordReset)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", vt.UserID).
			Updates(map[string]interface{}{
				"password":           string(hashedPassword),
				"refresh_token_hash": "",
			}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// consumeToken looks up an unused, unexpired token of the given purpose and
// marks it used inside the caller's transaction.
func (s *userService) consumeToken(tx *gorm.DB, tokenStr string, purpose models.TokenPurpose) (*models.VerificationToken, error) {
	var vt models.VerificationToken
	if err := forUpdate(tx).Where("token = ? AND purpose = ?", tokenStr, purpose).First(&vt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !vt.Valid(time.Now()) {
		return nil, apperrors.ErrTokenInvalid
	}

	if err := tx.Model(&vt).Update("is_used", true).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &vt, nil
}
