package pickup

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Location is the point the picker drives to, plus the address shown to them.
type Location struct {
	Lat     float64 `gorm:"column:lat;not null" bson:"lat" json:"lat"`
	Lng     float64 `gorm:"column:lng;not null" bson:"lng" json:"lng"`
	Address string  `gorm:"column:address;type:text;not null" bson:"address" json:"address"`
}

// Pickup is one scheduled waste pickup request.
type Pickup struct {
	ID          string      `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	GeneratorID string      `gorm:"type:varchar(36);not null;index" bson:"generator_id" json:"generator_id"`
	AssignedTo  *string     `gorm:"type:varchar(36);index" bson:"assigned_to" json:"assigned_to,omitempty"`
	Status      Status      `gorm:"type:varchar(20);not null;index" bson:"status" json:"status"`
	WasteTypes  StringSlice `gorm:"type:json;not null" bson:"waste_types" json:"waste_types"`
	Quantity    Quantity    `gorm:"type:varchar(20);not null" bson:"quantity" json:"quantity"`

	Location    Location  `gorm:"embedded;embeddedPrefix:location_" bson:"location" json:"location"`
	UserAddress *string   `gorm:"type:text" bson:"user_address" json:"user_address,omitempty"`
	Pincode     *string   `gorm:"type:varchar(6);index" bson:"pincode" json:"pincode,omitempty"`
	PickupDate  time.Time `gorm:"type:date;not null" bson:"pickup_date" json:"pickup_date"`

	GeneratorRating  *int    `gorm:"type:smallint" bson:"generator_rating" json:"generator_rating"`
	GeneratorComment *string `gorm:"type:text" bson:"generator_comment" json:"generator_comment"`
	PickerRating     *int    `gorm:"type:smallint" bson:"picker_rating" json:"picker_rating"`
	PickerComment    *string `gorm:"type:text" bson:"picker_comment" json:"picker_comment"`

	CompletedAt *time.Time `bson:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" bson:"updated_at" json:"updated_at"`
}

func (Pickup) TableName() string {
	return "scheduled_pickups"
}

// IsAssignedTo reports whether pickerID holds this pickup.
func (p *Pickup) IsAssignedTo(pickerID string) bool {
	return p.AssignedTo != nil && *p.AssignedTo == pickerID
}

// Column names accepted in conditional updates. They double as bson keys.
const (
	FieldStatus           = "status"
	FieldAssignedTo       = "assigned_to"
	FieldCompletedAt      = "completed_at"
	FieldGeneratorRating  = "generator_rating"
	FieldGeneratorComment = "generator_comment"
	FieldPickerRating     = "picker_rating"
	FieldPickerComment    = "picker_comment"
	FieldUpdatedAt        = "updated_at"
)

// StringSlice stores a list of labels as a JSON column.
type StringSlice []string

func (ss *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*ss = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(raw, ss)
}

func (ss StringSlice) Value() (driver.Value, error) {
	if ss == nil {
		return nil, nil
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (ss StringSlice) Contains(s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
