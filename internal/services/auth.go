package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/matterdesk/matterdesk/internal/config"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/internal/utils"
	"github.com/matterdesk/matterdesk/pkg/logger"
	"github.com/matterdesk/matterdesk/pkg/response"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	directory DirectoryAuthenticator
	jwtConfig *config.JWTConfig
	audit     *AuditService
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, directory DirectoryAuthenticator, audit *AuditService) *AuthService {
	return &AuthService{
		db:        db,
		directory: directory,
		jwtConfig: jwtCfg,
		audit:     audit,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LDAPLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterClientRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Phone     string `json:"phone" binding:"max=50"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type LoginResult struct {
	AccessToken     string          `json:"access_token"`
	AccessExpireAt  time.Time       `json:"access_expire_at"`
	RefreshToken    string          `json:"refresh_token"`
	RefreshExpireAt time.Time       `json:"refresh_expire_at"`
	Profile         *models.Profile `json:"profile,omitempty"`
}

var errInvalidCredentials = response.NewUnauthorized("invalid email or password")

// Login authenticates a local password principal.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).
		Where("email = ? AND auth_type = ?", normalizeEmail(req.Email), models.AuthTypeLocal).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, profile.Password) {
		return nil, errInvalidCredentials
	}
	return s.issue(ctx, &profile, clientIP, userAgent)
}

// LoginLDAP authenticates firm staff against the directory. The directory
// never provisions principals: the mail attribute must match an existing staff profile.
func (s *AuthService) LoginLDAP(ctx context.Context, req *LDAPLoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	if s.directory == nil || !s.directory.IsEnabled() {
		return nil, response.NewBadRequest("directory login is not enabled")
	}
	ldapUser, err := s.directory.Authenticate(req.Username, req.Password)
	if err != nil {
		logger.Warn().Err(err).Str("username", req.Username).Msg("directory authentication failed")
		return nil, response.NewUnauthorized("invalid directory credentials")
	}

	var profile models.Profile
	err = s.db.WithContext(ctx).Where("email = ?", normalizeEmail(ldapUser.Email)).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.ErrNotProvisioned.WithMessage("no staff profile for this directory account")
		}
		return nil, err
	}
	if !models.IsFirmRole(profile.Role) {
		return nil, response.ErrNotInternal
	}
	return s.issue(ctx, &profile, clientIP, userAgent)
}

// issue checks the principal can act and mints an access/refresh pair.
func (s *AuthService) issue(ctx context.Context, profile *models.Profile, clientIP, userAgent string) (*LoginResult, error) {
	if profile.Role == "" {
		return nil, response.ErrNotProvisioned
	}
	if profile.Status != models.StatusActive {
		return nil, &InactiveError{Status: profile.Status}
	}

	accessHours := s.accessHours()
	token, err := utils.GenerateToken(profile.ID, profile.Email, profile.Role, accessHours)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	refreshRecord := models.RefreshToken{
		ProfileID:   profile.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   now.Add(time.Duration(s.refreshHours()) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}
	db := s.db.WithContext(ctx)
	if err := db.Create(&refreshRecord).Error; err != nil {
		return nil, err
	}

	profile.LastLogin = &now
	db.Model(&models.Profile{}).Where("id = ?", profile.ID).Update("last_login", now)

	return &LoginResult{
		AccessToken:     token,
		AccessExpireAt:  now.Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: refreshRecord.ExpiresAt,
		Profile:         profile,
	}, nil
}

// Refresh rotates a refresh token. The old token is revoked and linked to its replacement.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP, userAgent string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, response.NewUnauthorized("refresh token required")
	}
	db := s.db.WithContext(ctx)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", utils.HashToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}
	now := time.Now()
	if !stored.Usable(now) {
		return nil, response.NewUnauthorized("refresh token expired or revoked")
	}

	var profile models.Profile
	if err := db.First(&profile, stored.ProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.ErrNotProvisioned
		}
		return nil, err
	}
	if profile.Role == "" {
		return nil, response.ErrNotProvisioned
	}
	if profile.Status != models.StatusActive {
		return nil, &InactiveError{Status: profile.Status}
	}

	accessHours := s.accessHours()
	accessToken, err := utils.GenerateToken(profile.ID, profile.Email, profile.Role, accessHours)
	if err != nil {
		return nil, err
	}
	newToken, newHash, err := utils.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}

	replacement := models.RefreshToken{
		ProfileID:   profile.ID,
		TokenHash:   newHash,
		ExpiresAt:   now.Add(time.Duration(s.refreshHours()) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}
		// Only one concurrent refresh of the same token may win.
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Updates(map[string]interface{}{
				"revoked_at":           now,
				"replaced_by_token_id": replacement.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return response.NewUnauthorized("refresh token expired or revoked")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:     accessToken,
		AccessExpireAt:  now.Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    newToken,
		RefreshExpireAt: replacement.ExpiresAt,
	}, nil
}

// Logout revokes one refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", utils.HashToken(refreshToken)).
		Update("revoked_at", time.Now()).Error
}

// RegisterClient creates a firm-less client principal.
func (s *AuthService) RegisterClient(ctx context.Context, req *RegisterClientRequest) (*models.Profile, error) {
	email := normalizeEmail(req.Email)
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	profile := models.Profile{
		Email:     email,
		Password:  hashed,
		AuthType:  models.AuthTypeLocal,
		Role:      models.RoleClient,
		Status:    models.StatusActive,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Profile{}).Where("email = ?", email).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return response.NewConflict("email is already registered")
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		_, err := s.audit.Record(tx, AuditEntry{
			ActorID: profile.ID,
			Action:  models.AuditUserRegistered,
			Details: map[string]interface{}{"role": profile.Role},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, profileID uint, req *ChangePasswordRequest) error {
	db := s.db.WithContext(ctx)

	var profile models.Profile
	if err := db.First(&profile, profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.ErrNotProvisioned
		}
		return err
	}
	if profile.AuthType != models.AuthTypeLocal {
		return response.NewBadRequest("directory accounts change their password in the directory")
	}
	if !utils.CheckPassword(req.OldPassword, profile.Password) {
		return response.NewBadRequest("incorrect old password")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return db.Model(&models.Profile{}).Where("id = ?", profile.ID).Update("password", hashed).Error
}

func (s *AuthService) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.ErrNotProvisioned
		}
		return nil, err
	}
	return &profile, nil
}

// SeedFirmAdmin creates the first firm and its admin_manager on an empty database.
func (s *AuthService) SeedFirmAdmin(ctx context.Context, cfg *config.BootstrapConfig) error {
	db := s.db.WithContext(ctx)

	var firms int64
	if err := db.Model(&models.Firm{}).Count(&firms).Error; err != nil {
		return err
	}
	if firms > 0 {
		return nil
	}

	hashed, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		firm := models.Firm{
			Name:     cfg.FirmName,
			Slug:     slugify(cfg.FirmName),
			Timezone: "UTC",
		}
		if err := tx.Create(&firm).Error; err != nil {
			return err
		}
		admin := models.Profile{
			FirmID:    &firm.ID,
			Email:     normalizeEmail(cfg.AdminEmail),
			Password:  hashed,
			AuthType:  models.AuthTypeLocal,
			Role:      models.RoleAdminManager,
			Status:    models.StatusActive,
			FirstName: "Firm",
			LastName:  "Administrator",
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		logger.Info().Uint("firm_id", firm.ID).Str("email", admin.Email).Msg("seeded default firm administrator")
		return nil
	})
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.directory != nil && s.directory.IsEnabled()
}

func (s *AuthService) accessHours() int {
	if s.jwtConfig == nil || s.jwtConfig.ExpireHour <= 0 {
		return 2
	}
	return s.jwtConfig.ExpireHour
}

func (s *AuthService) refreshHours() int {
	if s.jwtConfig == nil || s.jwtConfig.RefreshExpireHour <= 0 {
		return 720
	}
	return s.jwtConfig.RefreshExpireHour
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
