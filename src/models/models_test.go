package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessLevelOr(t *testing.T) {
	assert.Equal(t, AccessRW, AccessNone.Or(AccessRW))
	assert.Equal(t, AccessRW, AccessRW.Or(AccessMetadata))
	assert.Equal(t, AccessMaterial, AccessMaterial.Or(AccessMaterial))
}

func TestDeriveSlug(t *testing.T) {
	assert.Equal(t, "lineare-algebra", DeriveSlug("Lineare Algebra"))
	assert.Equal(t, "einfuehrung-in-c", DeriveSlug("Einführung in C++"))
	assert.Equal(t, "masstheorie", DeriveSlug("Maßtheorie"))
	assert.Equal(t, "analysis-1", DeriveSlug("  Analysis --- 1  "))
	assert.Equal(t, "", DeriveSlug("???"))
}

func TestEnsureNotStatic(t *testing.T) {
	course := Course{ID: 1, Slug: "analysis-1"}
	assert.Nil(t, course.EnsureNotStatic())

	course.IsStatic = true
	assert.NotNil(t, course.EnsureNotStatic())
}

func TestEasyAccessValidOn(t *testing.T) {
	expiry := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	ea := EasyAccess{ExpirationDate: expiry}

	assert.True(t, ea.ValidOn(time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)))
	assert.True(t, ea.ValidOn(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.False(t, ea.ValidOn(time.Date(2026, 3, 11, 0, 0, 1, 0, time.UTC)))
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "erika", (&User{Username: "erika"}).FullName())
	assert.Equal(t, "Erika Mustermann", (&User{Username: "erika", FirstName: "Erika", LastName: "Mustermann"}).FullName())
	assert.Equal(t, "Erika", (&User{Username: "erika", FirstName: "Erika"}).FullName())
}
