package user

type AvailabilityRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

type PincodeRequest struct {
	Pincode string `json:"pincode" validate:"required,max=6"`
}
