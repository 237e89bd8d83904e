package users

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Overland-East-Bay/user-accounts-api/internal/domain"
	clockport "github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/hasher"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/searchable"
	"github.com/Overland-East-Bay/user-accounts-api/internal/ports/out/userrepo"
)

type Service struct {
	repo   userrepo.Repository
	hasher hasher.Provider
	clk    clockport.Clock

	newUserID func() string

	// Logger records account lifecycle events. Never nil after NewService.
	Logger *zap.Logger
}

func NewService(repo userrepo.Repository, h hasher.Provider, clk clockport.Clock) *Service {
	return &Service{
		repo:      repo,
		hasher:    h,
		clk:       clk,
		newUserID: domain.NewID,
		Logger:    zap.NewNop(),
	}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (UserOutput, error) {
	name := domain.NormalizeHumanName(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return UserOutput{}, badRequest("Input data not provided")
	}

	if err := s.repo.EmailExists(ctx, email); err != nil {
		return UserOutput{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return UserOutput{}, err
	}

	u, err := domain.NewUser(domain.UserProps{
		Name:      name,
		Email:     email,
		Password:  hash,
		CreatedAt: s.clk.Now().UTC(),
	}, s.newUserID())
	if err != nil {
		return UserOutput{}, err
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return UserOutput{}, err
	}

	s.Logger.Info("user signed up", zap.String("userId", u.ID()))
	return toOutput(u), nil
}

func (s *Service) Signin(ctx context.Context, in SigninInput) (UserOutput, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return UserOutput{}, badRequest("Input data not provided")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return UserOutput{}, err
	}

	ok, err := s.hasher.Compare(ctx, in.Password, u.Password())
	if err != nil {
		return UserOutput{}, err
	}
	if !ok {
		s.Logger.Info("signin rejected", zap.String("userId", u.ID()))
		return UserOutput{}, invalidCredentials()
	}
	return toOutput(u), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (UserOutput, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return UserOutput{}, err
	}
	return toOutput(u), nil
}

// ListUsers normalizes the raw query and returns one page of users.
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) (PaginationOutput[UserOutput], error) {
	res, err := s.repo.Search(ctx, searchable.NewParams(in))
	if err != nil {
		return PaginationOutput[UserOutput]{}, err
	}
	return toPaginationOutput(res, toOutput), nil
}

func (s *Service) UpdateUser(ctx context.Context, in UpdateUserInput) (UserOutput, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return UserOutput{}, badRequest("Name not provided")
	}

	u, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return UserOutput{}, err
	}
	if err := u.Update(name); err != nil {
		return UserOutput{}, err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return UserOutput{}, err
	}
	return toOutput(u), nil
}

func (s *Service) UpdatePassword(ctx context.Context, in UpdatePasswordInput) (UserOutput, error) {
	u, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return UserOutput{}, err
	}
	if strings.TrimSpace(in.Password) == "" || in.OldPassword == "" {
		return UserOutput{}, invalidPassword("Old password and new password is required")
	}

	ok, err := s.hasher.Compare(ctx, in.OldPassword, u.Password())
	if err != nil {
		return UserOutput{}, err
	}
	if !ok {
		return UserOutput{}, invalidPassword("Old password does not match")
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return UserOutput{}, err
	}
	if err := u.UpdatePassword(hash); err != nil {
		return UserOutput{}, err
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return UserOutput{}, err
	}

	s.Logger.Info("password updated", zap.String("userId", u.ID()))
	return toOutput(u), nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Info("user deleted", zap.String("userId", id))
	return nil
}
