package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadModelsFile(t *testing.T) {
	path := writeModels(t, `tables:
  - name: users
    primary_key: [id]
    columns:
      - name: id
        type: bigint
      - name: email
        type: varchar(255)
      - name: bio
        type: text
        nullable: true
      - name: state
        type: text
        nullable: true
        default: "'new'"
  - name: posts
    columns:
      - name: id
        type: bigint
`)

	schema, err := Load(path)
	require.NoError(t, err)
	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "posts", schema.Tables[0].Name, "tables are sorted by name")
	assert.Equal(t, "users", schema.Tables[1].Name)

	users, ok := schema.TableByName("users")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)

	state, ok := schema.Column("users", "state")
	require.True(t, ok)
	assert.Equal(t, "'new'", state.Default)
	assert.True(t, state.Nullable)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read models")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeModels(t, "tables: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse models")
}

func TestLoadRejectsInvalidDeclaration(t *testing.T) {
	cases := map[string]string{
		"duplicate table": `tables:
  - name: users
    columns: [{name: id, type: bigint}]
  - name: users
    columns: [{name: id, type: bigint}]
`,
		"duplicate column": `tables:
  - name: users
    columns:
      - {name: id, type: bigint}
      - {name: id, type: text}
`,
		"missing type": `tables:
  - name: users
    columns: [{name: id}]
`,
		"unknown primary key column": `tables:
  - name: users
    primary_key: [uuid]
    columns: [{name: id, type: bigint}]
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeModels(t, content))
			assert.Error(t, err)
		})
	}
}
