package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"parkpass/internal/auth"
	"parkpass/internal/db"
	"parkpass/internal/entities"
	"parkpass/internal/errors"
	"parkpass/internal/repository"
)

type AuthService struct {
	Store     *repository.Store
	JWTSecret string
}

func NewAuthService(store *repository.Store, jwtSecret string) *AuthService {
	return &AuthService{Store: store, JWTSecret: jwtSecret}
}

func (s *AuthService) Signup(fullName, email, password string, acceptedTerms bool) (*entities.User, string, error) {
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" || password == "" {
		return nil, "", errors.ErrBadRequest("fullName, email and password are required")
	}
	if !acceptedTerms {
		return nil, "", errors.ErrBadRequest("terms must be accepted")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	user := &db.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.CreateUser(user); err != nil {
		return nil, "", errors.ErrConflict(err.Error())
	}

	token, err := auth.IssueToken(user.ID, s.JWTSecret)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	u := user.Entity()
	return &u, token, nil
}

func (s *AuthService) Login(email, password string) (*entities.User, string, error) {
	if email == "" || password == "" {
		return nil, "", errors.ErrBadRequest("email and password are required")
	}

	user, err := s.Store.GetUserByEmail(email)
	if err != nil {
		return nil, "", errors.ErrUnauthorized("invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", errors.ErrUnauthorized("invalid email or password")
	}

	token, err := auth.IssueToken(user.ID, s.JWTSecret)
	if err != nil {
		return nil, "", fmt.Errorf("issuing token: %w", err)
	}
	u := user.Entity()
	return &u, token, nil
}

// ForgotPassword always answers the same message so the endpoint cannot be
// used to probe which emails are registered.
func (s *AuthService) ForgotPassword(email string) string {
	if email == "" {
		return "If the email is registered, a reset link has been sent."
	}
	if _, err := s.Store.GetUserByEmail(email); err == nil {
		log.Printf("Password reset requested for %s", email)
	}
	return "If the email is registered, a reset link has been sent."
}

func (s *AuthService) GetUser(userID string) (*entities.User, error) {
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return nil, errors.ErrNotFound("user not found")
	}
	u := user.Entity()
	return &u, nil
}

func (s *AuthService) UpdateUser(userID, fullName string) (*entities.User, error) {
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return nil, errors.ErrNotFound("user not found")
	}
	if fullName != "" {
		user.FullName = fullName
	}
	if err := s.Store.UpdateUser(user); err != nil {
		return nil, err
	}
	u := user.Entity()
	return &u, nil
}
