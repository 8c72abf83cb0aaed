package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/postspot/user-service/internal/domain"
	"github.com/postspot/user-service/internal/events"
	"github.com/postspot/user-service/internal/repository"
)

// DirectoryService owns user records: sign-up, lookup and closure.
type DirectoryService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// DirectoryDependencies bundles collaborators for the directory service.
type DirectoryDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// SignUpInput carries profile fields supplied by the client. They are used
// only where the verified identity has no value.
type SignUpInput struct {
	Name  string
	Email string
}

// NewDirectoryService constructs the service.
func NewDirectoryService(deps DirectoryDependencies) *DirectoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// AddUser creates a directory record. The id and the normalized email must
// both be unused; an empty status means OPEN.
func (s *DirectoryService) AddUser(ctx context.Context, id, name, email string, status domain.AccountStatus) (*domain.User, error) {
	user, err := newUser(id, name, email, status)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user added", zap.String("user_id", user.ID))
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, "", events.UserRegisteredPayload{
		Name:  user.Name,
		Email: user.Email,
	}))
	return user, nil
}

// SignUp registers the verified caller. The subject id becomes the user id.
func (s *DirectoryService) SignUp(ctx context.Context, identity *domain.Identity, input SignUpInput) (*domain.User, error) {
	if identity == nil {
		return nil, domain.ErrInvalidToken
	}
	name := identity.Name
	if strings.TrimSpace(name) == "" {
		name = input.Name
	}
	email := identity.Email
	if strings.TrimSpace(email) == "" {
		email = input.Email
	}
	return s.AddUser(ctx, identity.SubjectID, name, email, domain.AccountStatusOpen)
}

// ReadUser returns the record for id.
func (s *DirectoryService) ReadUser(ctx context.Context, id string) (*domain.User, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// UserExists reports whether id is registered. An id that could never be
// registered is simply unknown.
func (s *DirectoryService) UserExists(ctx context.Context, id string) (bool, error) {
	if validateID(id) != nil {
		return false, nil
	}
	return s.users.Exists(ctx, id)
}

// CloseAccount marks the account CLOSED. Closing a closed account is a
// no-op and publishes nothing.
func (s *DirectoryService) CloseAccount(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	changed, err := s.users.UpdateStatus(ctx, id, domain.AccountStatusClosed)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	s.logger.Info("account closed", zap.String("user_id", id))
	s.publish(ctx, events.NewEvent(events.EventAccountClosed, id, "", nil))
	return nil
}

func (s *DirectoryService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func newUser(id, name, email string, status domain.AccountStatus) (*domain.User, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if status == "" {
		status = domain.AccountStatusOpen
	}

	switch {
	case name == "":
		return nil, fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	case !status.Valid():
		return nil, fmt.Errorf("unknown account status %q: %w", status, domain.ErrInvalidInput)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, fmt.Errorf("email %q is not a valid address: %w", email, domain.ErrInvalidInput)
	}

	return &domain.User{ID: id, Name: name, Email: email, Status: status}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
