package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schema_reconciler/internal/model"
)

type testDialect struct{ provider string }

func (d testDialect) Provider() string { return d.provider }

func (d testDialect) QuoteIdent(name string) string {
	if d.provider == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

func declaredUsers() model.Schema {
	return model.Schema{Tables: []model.Table{{
		Name:       "users",
		PrimaryKey: []string{"id"},
		Columns: []model.Column{
			{Name: "id", Type: "bigint"},
			{Name: "email", Type: "varchar(255)"},
			{Name: "bio", Type: "text", Nullable: true},
			{Name: "created_at", Type: "timestamp", Default: "CURRENT_TIMESTAMP"},
		},
	}}}
}

func TestStatementsCreateTable(t *testing.T) {
	declared := declaredUsers()
	d := SchemaDiff{MissingTables: []string{"users"}}

	stmts := Statements(d, declared, testDialect{"postgres"}, Options{})
	require.Len(t, stmts, 1)

	ddl := stmts[0]
	assert.True(t, strings.HasPrefix(ddl, `CREATE TABLE "users" (`))
	assert.Contains(t, ddl, `"id" bigint NOT NULL`)
	assert.Contains(t, ddl, `"bio" text,`)
	assert.Contains(t, ddl, `"created_at" timestamp NOT NULL DEFAULT CURRENT_TIMESTAMP`)
	assert.Contains(t, ddl, `PRIMARY KEY ("id")`)
	assert.True(t, strings.HasSuffix(ddl, ";"))
}

func TestStatementsAddAndDropColumns(t *testing.T) {
	declared := declaredUsers()
	d := SchemaDiff{Tables: map[string]TableDiff{
		"users": {
			MissingColumns: []string{"email"},
			ExtraColumns:   []string{"nickname"},
		},
	}}

	stmts := Statements(d, declared, testDialect{"postgres"}, Options{})
	require.Len(t, stmts, 2)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "email" varchar(255) NOT NULL;`, stmts[0])
	assert.Equal(t, `ALTER TABLE "users" DROP COLUMN "nickname";`, stmts[1])
}

func TestStatementsAlterColumnPostgres(t *testing.T) {
	declared := declaredUsers()
	d := SchemaDiff{Tables: map[string]TableDiff{
		"users": {Changed: []ColumnChange{{
			Name:  "email",
			Model: col("email", "varchar(255)", false, ""),
			Live:  col("email", "text", true, ""),
		}}},
	}}

	stmts := Statements(d, declared, testDialect{"postgres"}, Options{})
	require.Len(t, stmts, 2)
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "email" TYPE varchar(255);`, stmts[0])
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "email" SET NOT NULL;`, stmts[1])
}

func TestStatementsAlterColumnMySQL(t *testing.T) {
	declared := declaredUsers()
	d := SchemaDiff{Tables: map[string]TableDiff{
		"users": {Changed: []ColumnChange{{
			Name:  "email",
			Model: col("email", "varchar(255)", false, ""),
			Live:  col("email", "text", true, ""),
		}}},
	}}

	stmts := Statements(d, declared, testDialect{"mysql"}, Options{})
	require.Len(t, stmts, 1)
	assert.Equal(t, "ALTER TABLE `users` MODIFY COLUMN `email` varchar(255) NOT NULL;", stmts[0])
}

func TestStatementsSQLiteSkipsColumnChanges(t *testing.T) {
	declared := declaredUsers()
	d := SchemaDiff{Tables: map[string]TableDiff{
		"users": {Changed: []ColumnChange{{
			Name:  "email",
			Model: col("email", "varchar(255)", false, ""),
			Live:  col("email", "text", true, ""),
		}}},
	}}

	stmts := Statements(d, declared, testDialect{"sqlite"}, Options{})
	assert.Empty(t, stmts)
}

func TestStatementsUnmanagedTablePolicy(t *testing.T) {
	declared := declaredUsers()
	d := SchemaDiff{UnmanagedTables: []string{"legacy_audit"}}

	assert.Empty(t, Statements(d, declared, testDialect{"postgres"}, Options{}),
		"undeclared tables are kept by default")

	stmts := Statements(d, declared, testDialect{"postgres"}, Options{DropUnmanaged: true})
	require.Len(t, stmts, 1)
	assert.Equal(t, `DROP TABLE "legacy_audit";`, stmts[0])
}

func TestStatementsPrimaryKeyOnlyDiffProducesNothing(t *testing.T) {
	declared := declaredUsers()
	d := SchemaDiff{Tables: map[string]TableDiff{
		"users": {
			PrimaryKeyModel: []string{"id"},
			PrimaryKeyLive:  []string{"email"},
			PrimaryKeyDiff:  true,
		},
	}}

	assert.Empty(t, Statements(d, declared, testDialect{"postgres"}, Options{}))
}
