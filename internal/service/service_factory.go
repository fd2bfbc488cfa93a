package service

import (
	"blog-admin/internal/hashing"
	"blog-admin/internal/repository"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	repo   repository.AccountRepository
	hasher *hashing.Hasher
	events EventPublisher

	authService     *AuthService
	passwordService *PasswordService
	accountService  *AccountService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(repo repository.AccountRepository, hasher *hashing.Hasher, events EventPublisher) *ServiceFactory {
	return &ServiceFactory{repo: repo, hasher: hasher, events: events}
}

// AuthService returns the credential verifier (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(f.repo, f.hasher, f.events)
	}
	return f.authService
}

// PasswordService returns the password change flow (singleton)
func (f *ServiceFactory) PasswordService() *PasswordService {
	if f.passwordService == nil {
		f.passwordService = NewPasswordService(f.repo, f.hasher, f.events)
	}
	return f.passwordService
}

// AccountService returns the account provisioning service (singleton)
func (f *ServiceFactory) AccountService() *AccountService {
	if f.accountService == nil {
		f.accountService = NewAccountService(f.repo, f.hasher, f.events)
	}
	return f.accountService
}
