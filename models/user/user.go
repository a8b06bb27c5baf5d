package user

import "time"

type UserType string

const (
	TypeGenerator UserType = "generator"
	TypePicker    UserType = "picker"
)

func (t UserType) IsValid() bool {
	return t == TypeGenerator || t == TypePicker
}

// DefaultTier is assigned at sign up.
const DefaultTier = "Bronze"

// User is the account profile. IsAvailable is only set for pickers.
type User struct {
	ID           string   `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"user_id"`
	Name         string   `gorm:"type:varchar(255);not null" bson:"name" json:"name"`
	Email        string   `gorm:"type:varchar(255);not null;unique" bson:"email" json:"email"`
	Phone        string   `gorm:"type:varchar(20)" bson:"phone" json:"phone"`
	Address      string   `gorm:"type:text" bson:"address" json:"address"`
	PasswordHash string   `gorm:"type:varchar(255);not null" bson:"password_hash" json:"-"`
	UserType     UserType `gorm:"type:varchar(20);not null;index" bson:"user_type" json:"user_type"`
	Points       int      `gorm:"not null;default:0" bson:"points" json:"points"`
	Tier         string   `gorm:"type:varchar(20);not null" bson:"tier" json:"tier"`
	IsAvailable  *bool    `bson:"is_available" json:"is_available,omitempty"`
	Pincode      *string  `gorm:"type:varchar(6);index" bson:"pincode" json:"pincode,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" bson:"updated_at" json:"updated_at"`
}

func (u *User) IsPicker() bool {
	return u.UserType == TypePicker
}

// Available reports whether a picker is accepting pickups.
func (u *User) Available() bool {
	return u.IsPicker() && u.IsAvailable != nil && *u.IsAvailable
}

// Column names accepted in profile updates. They double as bson keys.
const (
	FieldIsAvailable = "is_available"
	FieldPincode     = "pincode"
	FieldUpdatedAt   = "updated_at"
)
