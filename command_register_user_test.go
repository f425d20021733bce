package bandmate_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/bandmate/bandmate"
)

type stubUsers struct {
	bandmate.Users

	createTx func(ctx context.Context, tx bun.IDB, record *bandmate.User) (*bandmate.User, error)
}

func (s *stubUsers) CreateTx(ctx context.Context, tx bun.IDB, record *bandmate.User, criteria ...repository.InsertCriteria) (*bandmate.User, error) {
	return s.createTx(ctx, tx, record)
}

type stubRepoManager struct {
	bandmate.RepositoryManager

	users bandmate.Users
}

func (s stubRepoManager) Users() bandmate.Users {
	return s.users
}

func (s stubRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func TestRegisterUserHandler(t *testing.T) {
	var created *bandmate.User

	users := &stubUsers{
		createTx: func(ctx context.Context, tx bun.IDB, record *bandmate.User) (*bandmate.User, error) {
			created = record
			return record, nil
		},
	}

	handler := bandmate.NewRegisterUserHandler(stubRepoManager{users: users})

	user, err := handler.Execute(context.Background(), bandmate.RegisterUserMessage{
		FirstName:  "Ana",
		LastName:   "Molina",
		Email:      "ana@example.com",
		Instrument: "bass",
		Password:   "password1234",
		UseHashid:  true,
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Ana", user.FirstName)
	assert.Equal(t, "bass", user.Instrument)

	// password stored hashed, never verbatim
	assert.NotEqual(t, "password1234", user.PasswordHash)
	assert.NoError(t, bandmate.ComparePasswordAndHash("password1234", user.PasswordHash))

	// hashid makes registration idempotent on email
	wantID, err := hashid.NewUUID("ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, wantID, user.ID)
}

func TestRegisterUserHandlerEmptyPassword(t *testing.T) {
	users := &stubUsers{
		createTx: func(ctx context.Context, tx bun.IDB, record *bandmate.User) (*bandmate.User, error) {
			t.Fatal("should not reach the store")
			return nil, nil
		},
	}

	handler := bandmate.NewRegisterUserHandler(stubRepoManager{users: users})

	_, err := handler.Execute(context.Background(), bandmate.RegisterUserMessage{
		Email: "ana@example.com",
	})
	assert.Error(t, err)
}

func TestRegisterUserHandlerDuplicateEmail(t *testing.T) {
	users := &stubUsers{
		createTx: func(ctx context.Context, tx bun.IDB, record *bandmate.User) (*bandmate.User, error) {
			return nil, errors.New("UNIQUE constraint failed: users.email")
		},
	}

	handler := bandmate.NewRegisterUserHandler(stubRepoManager{users: users})

	_, err := handler.Execute(context.Background(), bandmate.RegisterUserMessage{
		Email:    "ana@example.com",
		Password: "password1234",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, bandmate.ErrEmailTaken)
}
