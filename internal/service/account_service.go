package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

const recentOrders = 6

// Dashboard is the account overview page.
type Dashboard struct {
	Account      *entity.Account  `json:"account"`
	MyListings   []entity.Listing `json:"my_listings"`
	RecentOrders []entity.Order   `json:"recent_orders"`
	CartCount    int              `json:"cart_count"`
}

// ProfileInput carries a profile update. An empty Password keeps the
// current one; a nil Avatar keeps the current avatar.
type ProfileInput struct {
	Username string
	Email    string
	Password string
	Avatar   *Upload
}

type AccountService struct {
	accounts repository.AccountRepository
	blobs    repository.BlobStore
	listings *ListingService
	orders   *OrderService
	carts    *CartService
}

func NewAccountService(
	accounts repository.AccountRepository,
	blobs repository.BlobStore,
	listings *ListingService,
	orders *OrderService,
	carts *CartService,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		blobs:    blobs,
		listings: listings,
		orders:   orders,
		carts:    carts,
	}
}

func (s *AccountService) Register(ctx context.Context, username, email, password1, password2 string) (*entity.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	var msgs []string
	if username == "" {
		msgs = append(msgs, "Username is required.")
	}
	if email == "" {
		msgs = append(msgs, "Email is required.")
	}
	if password1 == "" {
		msgs = append(msgs, "Password is required.")
	} else if password1 != password2 {
		msgs = append(msgs, "Passwords do not match.")
	}
	if len(msgs) > 0 {
		return nil, &entity.ValidationError{Messages: msgs}
	}

	if err := s.ensureUnique(ctx, username, email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	a := &entity.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, entity.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("Service: Account registered", "account_id", a.ID)
	return a, nil
}

// Login checks the credentials. Unknown email and wrong password are not
// distinguished.
func (s *AccountService) Login(ctx context.Context, email, password string) (*entity.Account, error) {
	a, err := s.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, entity.ErrNotFound) {
		return nil, entity.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, entity.ErrUnauthenticated
	}
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, accountID string) (*entity.Account, error) {
	a, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}
	return a, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, in ProfileInput) (*entity.Account, error) {
	a, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, &entity.ValidationError{Messages: []string{"Username is required."}}
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		email = a.Email
	}
	if err := s.ensureUnique(ctx, username, email, a.ID); err != nil {
		return nil, err
	}
	a.Username = username
	a.Email = email

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		a.PasswordHash = string(hash)
	}

	var oldAvatar string
	if in.Avatar != nil {
		object := fmt.Sprintf("avatars/%s/%s%s", a.ID, uuid.NewString(), strings.ToLower(path.Ext(in.Avatar.Filename)))
		url, err := s.blobs.Put(ctx, object, in.Avatar.ContentType, in.Avatar.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to upload avatar: %w", err)
		}
		oldAvatar = a.AvatarObject
		a.AvatarURL = url
		a.AvatarObject = object
	}

	if err := s.accounts.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, entity.ErrDuplicateAccount
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if oldAvatar != "" {
		if err := s.blobs.Delete(ctx, oldAvatar); err != nil {
			slog.Error("Failed to delete previous avatar", "object", oldAvatar, "err", err)
		}
	}
	return a, nil
}

func (s *AccountService) ensureUnique(ctx context.Context, username, email, exceptID string) error {
	taken, err := s.accounts.UsernameTaken(ctx, username, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: username %q is taken", entity.ErrDuplicateAccount, username)
	}
	taken, err = s.accounts.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: email is already registered", entity.ErrDuplicateAccount)
	}
	return nil
}

func (s *AccountService) Dashboard(ctx context.Context, accountID string) (*Dashboard, error) {
	a, err := s.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	mine, err := s.listings.MyListings(ctx, accountID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.Recent(ctx, accountID, recentOrders)
	if err != nil {
		return nil, err
	}
	count, err := s.carts.Count(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cart: %w", err)
	}
	return &Dashboard{Account: a, MyListings: mine, RecentOrders: orders, CartCount: count}, nil
}

// EnsureAccount returns the account registered under email, creating it
// when missing. Used to own the demo catalog.
func (s *AccountService) EnsureAccount(ctx context.Context, username, email, password string) (*entity.Account, error) {
	a, err := s.accounts.FindByEmail(ctx, email)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}
	return s.Register(ctx, username, email, password, password)
}
