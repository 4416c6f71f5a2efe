package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"goa.design/goa/v3/security"
	"gorm.io/gorm"

	"precisionworks/internal/domain"
	"precisionworks/internal/identity"
	"precisionworks/internal/metrics"
	"precisionworks/internal/util"
)

// JWTScheme describes the bearer token security of the staff API
func JWTScheme(scopes ...string) *security.JWTScheme {
	return &security.JWTScheme{
		Name:           "jwt",
		Scopes:         []string{identity.ScopeStaff, identity.ScopeAdmin},
		RequiredScopes: scopes,
	}
}

// LoginPayload holds login credentials
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries an access token
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// MessageResult is a plain acknowledgement
type MessageResult struct {
	Message string `json:"message"`
}

// CreateUserPayload describes a new back office account
type CreateUserPayload struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name,omitempty"`
	IsActive bool    `json:"is_active"`
	IsAdmin  bool    `json:"is_admin"`
	IsStaff  bool    `json:"is_staff"`
}

// ListUsersPayload pages through accounts
type ListUsersPayload struct {
	Skip  int
	Limit int
}

// UserResult is the public view of a user
type UserResult struct {
	ID        uint    `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FullName  *string `json:"full_name,omitempty"`
	IsActive  bool    `json:"is_active"`
	IsAdmin   bool    `json:"is_admin"`
	IsStaff   bool    `json:"is_staff"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at,omitempty"`
	LastLogin *string `json:"last_login,omitempty"`
}

// AuthService implements the auth service
type AuthService struct {
	db      *gorm.DB
	tokens  *util.TokenIssuer
	revoked *util.Revocations

	mu       sync.Mutex
	onLogout []func(username string)
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB, tokens *util.TokenIssuer, revoked *util.Revocations) *AuthService {
	return &AuthService{db: db, tokens: tokens, revoked: revoked}
}

// OnLogout registers fn to run after a user logs out
func (s *AuthService) OnLogout(fn func(username string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// JWTAuth implements the authorization logic for the JWT security scheme. On
// success the returned context carries the identity.Principal.
func (s *AuthService) JWTAuth(ctx context.Context, token string, schema *security.JWTScheme) (context.Context, error) {
	claims, err := s.tokens.Validate(token)
	if errors.Is(err, util.ErrExpiredToken) {
		return nil, Unauthorized("token expired")
	}
	if err != nil {
		return nil, Unauthorized("invalid or expired token")
	}

	if s.revoked.IsRevoked(claims.ID) {
		return nil, Unauthorized("token has been revoked")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", claims.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Unauthorized("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, Unauthorized("user account is inactive")
	}

	p := &identity.Principal{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		IsStaff:  user.IsStaff,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}

	if schema != nil && len(schema.RequiredScopes) > 0 {
		if err := authorize(&user, schema.RequiredScopes); err != nil {
			log.Printf("[AUTH] %s denied %v: %v", user.Username, schema.RequiredScopes, err)
			return nil, Forbidden("insufficient permissions")
		}
	}

	return identity.WithPrincipal(ctx, p), nil
}

// authorize passes when user holds at least one of scopes
func authorize(user *domain.User, scopes []string) error {
	err := fmt.Errorf("unknown scopes %v", scopes)
	for _, scope := range scopes {
		switch scope {
		case identity.ScopeAdmin:
			err = util.RequireAdmin(user)
		case identity.ScopeStaff:
			err = util.RequireStaff(user)
		default:
			continue
		}
		if err == nil {
			return nil
		}
	}
	return err
}

// Login implements the login method
func (s *AuthService) Login(ctx context.Context, p *LoginPayload) (*LoginResult, error) {
	username := strings.TrimSpace(p.Username)
	password := strings.TrimSpace(p.Password)

	log.Printf("[AUTH] Login attempt for user: %s", username)

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		metrics.RecordAuthAttempt(false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[AUTH] Login failed: user '%s' not found", username)
			return nil, Unauthorized("incorrect username or password")
		}
		log.Printf("[AUTH] Login failed: database error for user '%s': %v", username, err)
		return nil, Internal("login failed")
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		log.Printf("[AUTH] Login failed: invalid password for user '%s'", username)
		metrics.RecordAuthAttempt(false)
		return nil, Unauthorized("incorrect username or password")
	}

	if !user.IsActive {
		log.Printf("[AUTH] Login failed: user '%s' is inactive", username)
		metrics.RecordAuthAttempt(false)
		return nil, Unauthorized("user account is inactive")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("[AUTH] Warning: could not record last login for '%s': %v", username, err)
	}

	token, _, err := s.tokens.Generate(&user)
	if err != nil {
		log.Printf("[AUTH] Login failed: token generation error for user '%s': %v", username, err)
		return nil, Internal("failed to generate token")
	}

	log.Printf("[AUTH] Login successful for user '%s' (id=%d, admin=%v, staff=%v)", username, user.ID, user.IsAdmin, user.IsStaff)
	metrics.RecordAuthAttempt(true)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.Expiry().Seconds()),
	}, nil
}

// Logout revokes the token the request was made with
func (s *AuthService) Logout(ctx context.Context) (*MessageResult, error) {
	p, ok := identity.FromContext(ctx)
	if !ok {
		return nil, Unauthorized("not authenticated")
	}

	log.Printf("[AUTH] Logout for user: %s (id=%d)", p.Username, p.UserID)
	s.revoked.Revoke(p.TokenID, p.ExpiresAt)

	s.mu.Lock()
	hooks := append([]func(string){}, s.onLogout...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(p.Username)
	}

	return &MessageResult{Message: "Logged out successfully"}, nil
}

// Me implements the me method
func (s *AuthService) Me(ctx context.Context) (*UserResult, error) {
	p, ok := identity.FromContext(ctx)
	if !ok {
		return nil, Unauthorized("not authenticated")
	}

	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found")
		}
		log.Printf("[AUTH] Me failed: database error: %v", err)
		return nil, Internal("failed to load user")
	}

	log.Printf("[AUTH] Me request for user: %s (id=%d)", user.Username, user.ID)
	return convertUserToResult(&user), nil
}

// CreateUser implements the create user method
func (s *AuthService) CreateUser(ctx context.Context, p *CreateUserPayload) (*UserResult, error) {
	username := strings.TrimSpace(p.Username)
	email := strings.ToLower(strings.TrimSpace(p.Email))
	password := strings.TrimSpace(p.Password)

	log.Printf("[AUTH] CreateUser request: username=%s, email=%s", username, email)

	if username == "" || email == "" {
		return nil, BadRequest("username and email are required")
	}

	var existingUser domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&existingUser).Error; err == nil {
		log.Printf("[AUTH] CreateUser failed: username '%s' already exists", username)
		return nil, BadRequest("username already registered")
	}

	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existingUser).Error; err == nil {
		log.Printf("[AUTH] CreateUser failed: email '%s' already exists", email)
		return nil, BadRequest("email already registered")
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		log.Printf("[AUTH] CreateUser failed: password hashing error: %v", err)
		return nil, BadRequest("%s", err.Error())
	}

	user := domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       p.IsActive,
		IsAdmin:        p.IsAdmin,
		IsStaff:        p.IsStaff,
	}
	if p.FullName != nil {
		fullName := strings.TrimSpace(*p.FullName)
		user.FullName = &fullName
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		log.Printf("[AUTH] CreateUser failed: database error: %v", err)
		return nil, Internal("failed to create user")
	}

	log.Printf("[AUTH] CreateUser successful: username=%s, id=%d", username, user.ID)
	return convertUserToResult(&user), nil
}

// ListUsers implements the list users method
func (s *AuthService) ListUsers(ctx context.Context, p *ListUsersPayload) ([]*UserResult, error) {
	log.Printf("[AUTH] ListUsers request: skip=%d, limit=%d", p.Skip, p.Limit)

	var users []domain.User
	query := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")

	if p.Skip > 0 {
		query = query.Offset(p.Skip)
	}
	if p.Limit > 0 {
		query = query.Limit(p.Limit)
	} else {
		query = query.Limit(100)
	}

	if err := query.Find(&users).Error; err != nil {
		log.Printf("[AUTH] ListUsers failed: database error: %v", err)
		return nil, Internal("failed to list users")
	}

	results := make([]*UserResult, len(users))
	for i := range users {
		results[i] = convertUserToResult(&users[i])
	}

	log.Printf("[AUTH] ListUsers successful: returned %d users", len(results))
	return results, nil
}

// Helper function to convert User model to UserResult
func convertUserToResult(user *domain.User) *UserResult {
	result := &UserResult{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		IsActive:  user.IsActive,
		IsAdmin:   user.IsAdmin,
		IsStaff:   user.IsStaff,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}

	if user.UpdatedAt.After(user.CreatedAt) {
		updated := user.UpdatedAt.Format(time.RFC3339)
		result.UpdatedAt = &updated
	}
	if user.LastLogin != nil {
		lastLogin := user.LastLogin.Format(time.RFC3339)
		result.LastLogin = &lastLogin
	}

	return result
}
