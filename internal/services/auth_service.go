package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest DTO
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RegisterEmployeeRequest DTO
type RegisterEmployeeRequest struct {
	Username string  `json:"username" binding:"required,min=3"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name"`
	Role     string  `json:"role" binding:"required,oneof=Admin Manager Cashier Waiter"`
}

// AuthResponse DTO
type AuthResponse struct {
	Employee     *models.Employee `json:"employee"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token,omitempty"`
}

// --- AuthService Interface ---
type AuthService interface {
	RegisterEmployee(ctx context.Context, req RegisterEmployeeRequest) (*models.Employee, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	GetProfile(ctx context.Context, employeeID int64) (*models.Employee, error)
}

// --- authService Implementation ---
type authService struct {
	employeeRepo repositories.EmployeeRepository
	db           *sql.DB
}

// NewAuthService creates a new instance of AuthService. Tokens are signed
// with the secret configured through utils.InitJWT.
func NewAuthService(repo repositories.EmployeeRepository, db *sql.DB) AuthService {
	return &authService{employeeRepo: repo, db: db}
}

// RegisterEmployee hashes the password and stores a new active employee.
func (s *authService) RegisterEmployee(ctx context.Context, req RegisterEmployeeRequest) (*models.Employee, error) {
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	employee := models.Employee{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hashed),
		FullName:     req.FullName,
		Role:         req.Role,
		IsActive:     true,
	}
	if _, err := s.employeeRepo.CreateEmployee(ctx, s.db, &employee); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: username %q", ErrDuplicateRecord, employee.Username)
		}
		return nil, fmt.Errorf("failed to register employee: %w", err)
	}
	employee.PasswordHash = ""
	return &employee, nil
}

// Login checks the credentials and issues an access and refresh token pair.
func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	employee, err := s.employeeRepo.FindEmployeeByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}
	if !employee.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(employee)
}

// RefreshAccessToken exchanges a refresh token for a new token pair. The
// employee is reloaded so role changes and deactivation take effect.
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	employee, err := s.employeeRepo.FindEmployeeByID(ctx, claims.EmployeeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load employee for refresh: %w", err)
	}
	if !employee.IsActive {
		return nil, ErrInvalidToken
	}
	return s.issueTokens(employee)
}

func (s *authService) GetProfile(ctx context.Context, employeeID int64) (*models.Employee, error) {
	employee, err := s.employeeRepo.FindEmployeeByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to retrieve employee profile: %w", err)
	}
	employee.PasswordHash = ""
	return employee, nil
}

func (s *authService) issueTokens(employee *models.Employee) (*AuthResponse, error) {
	accessToken, err := utils.GenerateAccessToken(employee.ID, employee.Username, employee.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := utils.GenerateRefreshToken(employee.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	employee.PasswordHash = ""
	return &AuthResponse{Employee: employee, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
