package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-admin/internal/models"
	"blog-admin/internal/repository"
	"blog-admin/internal/repository/memory"
)

func TestAccountService_Upsert(t *testing.T) {
	repo := memory.NewAccountRepository()
	svc := NewAccountService(repo, testHasher, nil)

	created, err := svc.Upsert(context.Background(), AccountCreateRequest{
		Email: "Ada@Example.com", Name: "Ada", Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, models.RoleAdmin, created.Role)
	assert.Empty(t, created.PasswordHash)

	updated, err := svc.Upsert(context.Background(), AccountCreateRequest{
		Email: "ada@example.com", Name: "Ada L.", Role: "editor", Password: "another pass",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, models.RoleEditor, updated.Role)

	stored, err := repo.FindByEmail(context.Background(), "ada@example.com", repository.FindOptions{IncludeHash: true})
	require.NoError(t, err)
	assert.True(t, testHasher.Verify("another pass", stored.PasswordHash))
}

func TestAccountService_UpsertValidation(t *testing.T) {
	svc := NewAccountService(memory.NewAccountRepository(), testHasher, nil)

	cases := map[string]AccountCreateRequest{
		"email":    {Email: "not-an-email", Name: "Ada", Password: "correct horse"},
		"name":     {Email: "ada@example.com", Name: " ", Password: "correct horse"},
		"role":     {Email: "ada@example.com", Name: "Ada", Role: "owner", Password: "correct horse"},
		"password": {Email: "ada@example.com", Name: "Ada", Password: "short"},
	}
	for field, req := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)
		})
	}
}

func TestAccountService_RejectsMarkupInName(t *testing.T) {
	svc := NewAccountService(memory.NewAccountRepository(), testHasher, nil)

	_, err := svc.Upsert(context.Background(), AccountCreateRequest{
		Email: "ada@example.com", Name: "<script>alert(1)</script>", Password: "correct horse",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
