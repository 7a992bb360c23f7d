package domain

import "time"

// UserRole enumerates portal staff roles.
type UserRole string

const (
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleStaff     UserRole = "STAFF"
	UserRoleModerator UserRole = "MODERATOR"
)

// UserStatus represents lifecycle states for a staff account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusPending   UserStatus = "PENDING"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// SystemUserID identifies operations run from the admin CLI.
const SystemUserID = "00000000-0000-0000-0000-000000000000"

// User is a staff member of the portal.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account may act.
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// SystemActor is the identity used by operator tooling.
func SystemActor() *User {
	return &User{ID: SystemUserID, Name: "system", Role: UserRoleAdmin, Status: UserStatusActive}
}

// ParseUserRole parses a role case-insensitively.
func ParseUserRole(raw string) (UserRole, bool) {
	key := normalizeEnum(raw)
	for _, r := range []UserRole{UserRoleAdmin, UserRoleStaff, UserRoleModerator} {
		if string(r) == key {
			return r, true
		}
	}
	return "", false
}

// ParseUserStatus parses an account status case-insensitively.
func ParseUserStatus(raw string) (UserStatus, bool) {
	key := normalizeEnum(raw)
	for _, s := range []UserStatus{UserStatusActive, UserStatusPending, UserStatusSuspended} {
		if string(s) == key {
			return s, true
		}
	}
	return "", false
}
