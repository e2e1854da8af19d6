package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/model"
)

func TestCapabilities(t *testing.T) {
	guest := Identity{UserID: 1, Username: "g", Role: model.RoleGuest}
	author := Identity{UserID: 2, Username: "a", Role: model.RoleAuthor}
	admin := Identity{UserID: 3, Username: "root", Role: model.RoleAdmin}

	assert.False(t, Anonymous.Authenticated())
	assert.ErrorIs(t, Anonymous.Require(), apperr.ErrUnauthorized)
	assert.NoError(t, guest.Require())

	assert.False(t, guest.CanPublish())
	assert.True(t, author.CanPublish())
	assert.True(t, admin.CanPublish())

	assert.ErrorIs(t, author.RequireAdmin(), apperr.ErrForbidden)
	assert.ErrorIs(t, Anonymous.RequireAdmin(), apperr.ErrUnauthorized)
	assert.NoError(t, admin.RequireAdmin())

	assert.True(t, author.Owns(2))
	assert.False(t, author.Owns(1))
	assert.False(t, Anonymous.Owns(0))
}

func TestParseAssignableRole(t *testing.T) {
	r, err := ParseAssignableRole("Author")
	assert.NoError(t, err)
	assert.Equal(t, model.RoleAuthor, r)

	for _, bad := range []string{"Admin", "author", ""} {
		_, err := ParseAssignableRole(bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, bad)
	}
}

func TestContextRoundTrip(t *testing.T) {
	assert.Equal(t, Anonymous, FromContext(context.Background()))

	id := Identity{UserID: 9, Username: "x", Role: model.RoleGuest}
	assert.Equal(t, id, FromContext(WithContext(context.Background(), id)))
}
