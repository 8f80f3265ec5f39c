package entity

import "time"

// Roles de usuario del back office.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// User usuario del back office (autenticación y RBAC).
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string // "admin" | "editor"
	Status       string // "active" | "suspended"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
