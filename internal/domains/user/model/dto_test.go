package model_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"library-backend/internal/domains/user/model"
)

func Test_RegisterRequest_Validate(t *testing.T) {
	valid := model.RegisterRequest{Email: "  Reader@Example.COM ", Username: " reader ", Password: "long-enough"}
	valid.Normalize()

	assert.NoError(t, valid.Validate())
	assert.Equal(t, "reader@example.com", valid.Email)
	assert.Equal(t, "reader", valid.Username)

	cases := map[string]model.RegisterRequest{
		"bad email":      {Email: "nope", Username: "reader", Password: "long-enough"},
		"short username": {Email: "a@b.co", Username: "ab", Password: "long-enough"},
		"long username":  {Email: "a@b.co", Username: strings.Repeat("x", 31), Password: "long-enough"},
		"short password": {Email: "a@b.co", Username: "reader", Password: "short"},
	}
	for name, req := range cases {
		assert.Error(t, req.Validate(), name)
	}
}

func Test_SetRoleRequest_RequiresFlag(t *testing.T) {
	assert.Error(t, model.SetRoleRequest{}.Validate())

	no := false
	assert.NoError(t, model.SetRoleRequest{IsAdmin: &no}.Validate())
}

func Test_User_HasBorrowed(t *testing.T) {
	bookID := uuid.New()
	u := model.User{}
	assert.False(t, u.HasBorrowed(bookID))

	u.BorrowedBooks = append(u.BorrowedBooks, bookID)
	assert.True(t, u.HasBorrowed(bookID))
	assert.NotNil(t, u.ToInfo().BorrowedBooks)
}
