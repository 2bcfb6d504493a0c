package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey"        json:"id"`
	Email               string         `gorm:"uniqueIndex;not null"        json:"email"`
	PasswordHash        string         `gorm:"not null"                    json:"-"`
	Role                string         `gorm:"not null;default:user"       json:"role"`
	Permissions         PermissionList `json:"permissions"`
	ResetTokenHash      *string        `gorm:"index"                       json:"-"`
	ResetTokenExpiresAt *time.Time     `json:"-"`
	Version             int64          `gorm:"not null;default:0"          json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	RefreshTokens       []RefreshToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID            uint       `gorm:"primaryKey"               json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	Token         string     `gorm:"uniqueIndex;not null"     json:"-"`
	CreatedAt     time.Time  `gorm:"not null"                 json:"created_at"`
	CreatedByIP   string     `json:"created_by_ip"`
	ExpiresAt     time.Time  `gorm:"not null"                 json:"expires_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP   *string    `json:"revoked_by_ip,omitempty"`
	ReasonRevoked *string    `json:"reason_revoked,omitempty"`
	ReplacedBy    *string    `gorm:"index"                    json:"-"`
}

type TokenState string

const (
	StateActive  TokenState = "active"
	StateRotated TokenState = "rotated"
	StateRevoked TokenState = "revoked"
	StateExpired TokenState = "expired"
)

func (t *RefreshToken) IsExpired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

func (t *RefreshToken) IsRevoked() bool { return t.RevokedAt != nil }

func (t *RefreshToken) IsActive(now time.Time) bool { return !t.IsExpired(now) && !t.IsRevoked() }

// IsRotated reports a token retired by rotation, i.e. one that has a successor.
func (t *RefreshToken) IsRotated() bool {
	return t.IsRevoked() && t.ReplacedBy != nil && *t.ReplacedBy != ""
}

func (t *RefreshToken) State(now time.Time) TokenState {
	switch {
	case t.IsExpired(now):
		return StateExpired
	case t.IsRotated():
		return StateRotated
	case t.IsRevoked():
		return StateRevoked
	default:
		return StateActive
	}
}

// PermissionList is a text[] column on postgres and an encoded text column elsewhere.
type PermissionList []string

func (p PermissionList) Value() (driver.Value, error) {
	return pq.StringArray(p).Value()
}

func (p *PermissionList) Scan(src any) error {
	return (*pq.StringArray)(p).Scan(src)
}

func (PermissionList) GormDataType() string { return "text" }

func (PermissionList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (p PermissionList) Contains(perm string) bool {
	for _, v := range p {
		if v == perm {
			return true
		}
	}
	return false
}
