package models

import "time"

type User struct {
	ID           string    `gorm:"primaryKey;size:36"       json:"id"`
	Name         string    `gorm:"not null;size:255"        json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time `gorm:"not null"                 json:"created_at"`
}
