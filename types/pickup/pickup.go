package pickup

// LocationRequest is the pickup point chosen on the map.
type LocationRequest struct {
	Lat     float64 `json:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" validate:"longitude"`
	Address string  `json:"address" validate:"max=500"`
}

// ScheduleRequest represents the request payload for scheduling a pickup
type ScheduleRequest struct {
	WasteTypes  []string        `json:"waste_types" validate:"required,min=1,dive,oneof=Plastic Paper Metal Glass"`
	Quantity    string          `json:"quantity" validate:"required,oneof='Small Bag' 'Medium Bag' 'Large Bag'"`
	Location    LocationRequest `json:"location"`
	PickupDate  string          `json:"pickup_date" validate:"required"`
	UserAddress string          `json:"user_address" validate:"omitempty,max=500"`
	Pincode     string          `json:"pincode" validate:"omitempty,max=6"`
}

// RatingRequest is submitted by either side after completion.
type RatingRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=1000"`
}
