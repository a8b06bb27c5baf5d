package pickup

import "time"

// StatusEvent is an append-only audit row written after every successful transition.
type StatusEvent struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	PickupID  string    `gorm:"type:varchar(36);not null;index" bson:"pickup_id" json:"pickup_id"`
	Status    Status    `gorm:"type:varchar(20);not null" bson:"status" json:"status"`
	EventType string    `gorm:"type:varchar(50);not null;index" bson:"event_type" json:"event_type"`
	ActorID   string    `gorm:"type:varchar(36);not null" bson:"actor_id" json:"actor_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" bson:"created_at" json:"created_at"`
}

func (StatusEvent) TableName() string {
	return "pickup_status_events"
}
