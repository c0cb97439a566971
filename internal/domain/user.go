package domain

import "time"

// UserRole enumerates account roles.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleAgent    UserRole = "agent"
	UserRoleCustomer UserRole = "customer"
)

// SystemActorUsername is the reserved username for the synthetic account that
// authors automated audit comments. Provisioned at startup, never lazily.
const SystemActorUsername = "system_bot"

// User is the domain model for customers, agents and admins alike.
// Only active agents are eligible for ticket assignment.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AssignableAgent reports whether the user can receive ticket assignments.
func (u User) AssignableAgent() bool {
	return u.Role == UserRoleAgent && u.Active
}
