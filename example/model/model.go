package model

import "time"

// User is a declared data model; the reconciler keeps the users table in
// line with it.
type User struct {
	ID        int64     `schema:"column:id;type:bigint;primary_key"`
	Email     string    `schema:"column:email;type:varchar(255);not_null"`
	Bio       *string   `schema:"column:bio;type:text"`
	CreatedAt time.Time `schema:"column:created_at;type:timestamp;not_null;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string { return "users" }

// Post demonstrates derived naming: the table is called posts.
type Post struct {
	ID     int64  `schema:"column:id;type:bigint;primary_key"`
	UserID int64  `schema:"column:user_id;type:bigint;not_null"`
	Title  string `schema:"column:title;type:varchar(255);not_null"`
	Body   string `schema:"column:body;type:text"`
}
