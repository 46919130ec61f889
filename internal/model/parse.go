package model

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"
)

// nameable lets a model override its derived table name.
type nameable interface {
	TableName() string
}

// FromStructs builds a declared schema from tagged Go structs. Field mapping
// is controlled by the `schema` tag:
//
//	type User struct {
//		ID    int64  `schema:"column:id;type:bigint;primary_key"`
//		Email string `schema:"column:email;type:varchar(255);not_null"`
//		Bio   string `schema:"type:text"`
//		skip  string `schema:"-"`
//	}
//
// Column names default to the snake-cased field name and types default to a
// mapping from the Go type. Pointer fields are nullable; primary-key and
// not_null fields are not.
func FromStructs(models ...any) (Schema, error) {
	var schema Schema
	for _, m := range models {
		table, err := parseStruct(m)
		if err != nil {
			return Schema{}, err
		}
		schema.Tables = append(schema.Tables, table)
	}
	schema.sortTables()
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

func parseStruct(m any) (Table, error) {
	t := reflect.TypeOf(m)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Table{}, fmt.Errorf("model %v is not a struct", t)
	}

	table := Table{Name: tableName(m, t)}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("schema")
		if tag == "-" {
			continue
		}

		col, isPK, err := parseField(field, tag)
		if err != nil {
			return Table{}, fmt.Errorf("table %s field %s: %w", table.Name, field.Name, err)
		}
		table.Columns = append(table.Columns, col)
		if isPK {
			table.PrimaryKey = append(table.PrimaryKey, col.Name)
		}
	}
	return table, nil
}

func parseField(field reflect.StructField, tag string) (Column, bool, error) {
	col := Column{
		Name:     toSnakeCase(field.Name),
		Nullable: true,
	}
	isPK := false

	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, ":")
		switch strings.ToLower(key) {
		case "column":
			col.Name = value
		case "type":
			col.Type = value
		case "default":
			col.Default = value
		case "not_null":
			col.Nullable = false
		case "primary_key":
			isPK = true
			col.Nullable = false
		default:
			return Column{}, false, fmt.Errorf("unknown schema tag option %q", key)
		}
	}

	if col.Type == "" {
		inferred, err := sqlType(field.Type)
		if err != nil {
			return Column{}, false, err
		}
		col.Type = inferred
	}
	if field.Type.Kind() == reflect.Ptr && !isPK {
		col.Nullable = true
	}
	return col, isPK, nil
}

func tableName(m any, t reflect.Type) string {
	if n, ok := m.(nameable); ok {
		return n.TableName()
	}
	return toPlural(toSnakeCase(t.Name()))
}

var timeType = reflect.TypeOf(time.Time{})

func sqlType(t reflect.Type) (string, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return "timestamp", nil
	}
	switch t.Kind() {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Int:
		return "integer", nil
	case reflect.Int64, reflect.Uint, reflect.Uint64:
		return "bigint", nil
	case reflect.String:
		return "text", nil
	case reflect.Bool:
		return "boolean", nil
	case reflect.Float32, reflect.Float64:
		return "double precision", nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "bytea", nil
		}
	}
	return "", fmt.Errorf("cannot infer SQL type for %v; add a type tag", t)
}

func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Keep acronym runs together: "HTTPAddr" -> "http_addr".
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toPlural(s string) string {
	if strings.HasSuffix(s, "s") || strings.HasSuffix(s, "x") ||
		strings.HasSuffix(s, "z") || strings.HasSuffix(s, "ch") ||
		strings.HasSuffix(s, "sh") {
		return s + "es"
	}
	if strings.HasSuffix(s, "y") && len(s) > 1 {
		last := rune(s[len(s)-2])
		if last != 'a' && last != 'e' && last != 'i' && last != 'o' && last != 'u' {
			return s[:len(s)-1] + "ies"
		}
	}
	return s + "s"
}
