package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID        int64     `schema:"column:id;type:bigint;primary_key"`
	Email     string    `schema:"column:email;type:varchar(255);not_null"`
	Bio       *string   `schema:"type:text"`
	CreatedAt time.Time `schema:"not_null;default:CURRENT_TIMESTAMP"`
	internal  string
	Skipped   string    `schema:"-"`
}

func (account) TableName() string { return "accounts" }

type UserProfile struct {
	ID       int64 `schema:"primary_key"`
	IsActive bool
	Score    float64
	Avatar   []byte
	HTTPAddr string
}

func TestFromStructsTagParsing(t *testing.T) {
	schema, err := FromStructs(account{})
	require.NoError(t, err)
	require.Len(t, schema.Tables, 1)

	table := schema.Tables[0]
	assert.Equal(t, "accounts", table.Name)
	assert.Equal(t, []string{"id"}, table.PrimaryKey)
	require.Len(t, table.Columns, 4, "unexported and skipped fields are dropped")

	id, ok := schema.Column("accounts", "id")
	require.True(t, ok)
	assert.Equal(t, "bigint", id.Type)
	assert.False(t, id.Nullable)

	email, ok := schema.Column("accounts", "email")
	require.True(t, ok)
	assert.Equal(t, "varchar(255)", email.Type)
	assert.False(t, email.Nullable)

	bio, ok := schema.Column("accounts", "bio")
	require.True(t, ok)
	assert.Equal(t, "text", bio.Type)
	assert.True(t, bio.Nullable, "pointer fields are nullable")

	created, ok := schema.Column("accounts", "created_at")
	require.True(t, ok)
	assert.Equal(t, "timestamp", created.Type, "time.Time is inferred")
	assert.Equal(t, "CURRENT_TIMESTAMP", created.Default)
	assert.False(t, created.Nullable)
}

func TestFromStructsDerivedNamesAndTypes(t *testing.T) {
	schema, err := FromStructs(UserProfile{})
	require.NoError(t, err)
	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "user_profiles", schema.Tables[0].Name)

	cases := map[string]string{
		"id":        "bigint",
		"is_active": "boolean",
		"score":     "double precision",
		"avatar":    "bytea",
		"http_addr": "text",
	}
	for name, typ := range cases {
		col, ok := schema.Column("user_profiles", name)
		require.True(t, ok, "column %s", name)
		assert.Equal(t, typ, col.Type, "column %s", name)
	}
}

func TestFromStructsPointerModel(t *testing.T) {
	schema, err := FromStructs(&UserProfile{})
	require.NoError(t, err)
	assert.Equal(t, "user_profiles", schema.Tables[0].Name)
}

func TestFromStructsRejectsUnknownTagOption(t *testing.T) {
	type bad struct {
		ID int64 `schema:"colum:id"`
	}
	_, err := FromStructs(bad{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown schema tag option")
}

func TestFromStructsRejectsUninferableType(t *testing.T) {
	type bad struct {
		Meta map[string]string
	}
	_, err := FromStructs(bad{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot infer SQL type")
}

func TestFromStructsRejectsNonStruct(t *testing.T) {
	_, err := FromStructs(42)
	require.Error(t, err)
}

func TestFromStructsSortsTables(t *testing.T) {
	schema, err := FromStructs(UserProfile{}, account{})
	require.NoError(t, err)
	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "accounts", schema.Tables[0].Name)
	assert.Equal(t, "user_profiles", schema.Tables[1].Name)
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"ID":        "id",
		"UserID":    "user_id",
		"HTTPAddr":  "http_addr",
		"CreatedAt": "created_at",
		"Email":     "email",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

func TestToPlural(t *testing.T) {
	cases := map[string]string{
		"user":     "users",
		"category": "categories",
		"box":      "boxes",
		"status":   "statuses",
		"day":      "days",
	}
	for in, want := range cases {
		assert.Equal(t, want, toPlural(in), in)
	}
}
