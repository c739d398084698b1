package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/account"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/auth"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/internal/core/domain/challenge"
	"github.com/Developer-Keyithan/HND-Project-Shansi-Akka-sub000/test/mocks"
)

func TestPasswordLogin_UnknownEmailStillComparesHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	accounts := mocks.NewAccountRepositoryMock(&account.Account{Email: "member@x.com", PasswordHash: string(hash), Role: account.RoleCustomer})

	svc := NewAuthService(accounts, &mocks.SessionIssuerMock{}, nil, time.Hour, nil).(*AuthService)
	var compared [][]byte
	svc.compare = func(h, password []byte) error {
		compared = append(compared, h)
		return bcrypt.CompareHashAndPassword(h, password)
	}

	_, err = svc.PasswordLogin(context.Background(), &auth.LoginRequest{Email: "nobody@x.com", Password: "correct-horse"})
	require.ErrorIs(t, err, challenge.ErrInvalidCredentials)
	require.Len(t, compared, 1, "a hash comparison runs even without an account")
	assert.Equal(t, unknownAccountHash(), compared[0])

	cost, err := bcrypt.Cost(compared[0])
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	_, err = svc.PasswordLogin(context.Background(), &auth.LoginRequest{Email: "member@x.com", Password: "wrong-horse"})
	require.ErrorIs(t, err, challenge.ErrInvalidCredentials)
	assert.Len(t, compared, 2)
}
