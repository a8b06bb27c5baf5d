package pickup

type Status string

const (
	StatusPending   Status = "Pending"
	StatusAssigned  Status = "Assigned"
	StatusCompleted Status = "Completed"
	StatusWithdrawn Status = "Withdrawn"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusCompleted, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusWithdrawn
}

// HasPicker returns true for the statuses in which assigned_to must be set.
func (s Status) HasPicker() bool {
	return s == StatusAssigned || s == StatusCompleted
}

type Quantity string

const (
	QuantitySmallBag  Quantity = "Small Bag"
	QuantityMediumBag Quantity = "Medium Bag"
	QuantityLargeBag  Quantity = "Large Bag"
)

func (q Quantity) IsValid() bool {
	switch q {
	case QuantitySmallBag, QuantityMediumBag, QuantityLargeBag:
		return true
	default:
		return false
	}
}

const (
	WastePlastic = "Plastic"
	WastePaper   = "Paper"
	WasteMetal   = "Metal"
	WasteGlass   = "Glass"
)

// GetAllWasteTypes returns the accepted waste categories in display order.
func GetAllWasteTypes() []string {
	return []string{WastePlastic, WastePaper, WasteMetal, WasteGlass}
}

func IsValidWasteType(s string) bool {
	switch s {
	case WastePlastic, WastePaper, WasteMetal, WasteGlass:
		return true
	default:
		return false
	}
}

// Rating bounds, inclusive.
const (
	MinRating = 1
	MaxRating = 5
)
