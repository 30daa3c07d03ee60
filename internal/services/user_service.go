package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/repo"
)

// UserInput carries the fields needed to register a participant.
type UserInput struct {
	Name              string
	Email             string
	Role              string
	NotificationEmail *string
}

// UserService registers and looks up ledger participants. It stores no
// credentials; identity is established by the HTTP layer.
type UserService struct {
	DB *gorm.DB
}

// Create validates in and stores a new user. Role defaults to buyer.
func (s *UserService) Create(ctx context.Context, in UserInput) (*domain.User, error) {
	in.Name = normalizeText(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = domain.RoleBuyer
	}

	verr := &ValidationError{}
	if in.Name == "" {
		verr.add("name", "is required")
	}
	if !validEmail(in.Email) {
		verr.add("email", "must be a valid address")
	}
	switch in.Role {
	case domain.RoleBuyer, domain.RoleInfluencer, domain.RoleCompany, domain.RoleAdmin:
	default:
		verr.add("role", "must be one of buyer, influencer, company, admin")
	}
	if in.NotificationEmail != nil {
		ne := strings.TrimSpace(*in.NotificationEmail)
		if ne == "" {
			in.NotificationEmail = nil
		} else if !validEmail(ne) {
			verr.add("notification_email", "must be a valid address")
		} else {
			in.NotificationEmail = &ne
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:              in.Name,
		Email:             in.Email,
		Role:              in.Role,
		NotificationEmail: in.NotificationEmail,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Get returns a user or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// validEmail accepts a bare address (no display name).
func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}
