package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecochain/metrics"
	logModel "ecochain/models/log"
	pickupModel "ecochain/models/pickup"
	userModel "ecochain/models/user"
	"ecochain/store"
	"ecochain/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStore implements store.Store on PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the handle for the migration tool.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// nullableColumns are the only columns accepted in Precondition.Unset. They
// are interpolated into SQL, so the list must stay closed.
var nullableColumns = map[string]bool{
	pickupModel.FieldAssignedTo:       true,
	pickupModel.FieldCompletedAt:      true,
	pickupModel.FieldGeneratorRating:  true,
	pickupModel.FieldGeneratorComment: true,
	pickupModel.FieldPickerRating:     true,
	pickupModel.FieldPickerComment:    true,
}

func (s *GormStore) CreatePickup(ctx context.Context, p *pickupModel.Pickup) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return s.translate("create_pickup", err)
	}
	return nil
}

func (s *GormStore) GetPickup(ctx context.Context, id string) (*pickupModel.Pickup, error) {
	var p pickupModel.Pickup
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, s.translate("get_pickup", err)
	}
	return &p, nil
}

// UpdatePickup issues a single UPDATE guarded by the precondition and uses
// RowsAffected as the compare-and-swap result.
func (s *GormStore) UpdatePickup(ctx context.Context, id string, pre store.Precondition, fields store.Fields) error {
	q, updates, err := guardedPickupUpdate(s.db.WithContext(ctx), id, pre, fields)
	if err != nil {
		return err
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return s.translate("update_pickup", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&pickupModel.Pickup{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return s.translate("update_pickup", err)
	}
	if count == 0 {
		return fmt.Errorf("pickup %s: %w", id, store.ErrNotFound)
	}
	return fmt.Errorf("pickup %s: %w", id, store.ErrPreconditionFailed)
}

// guardedPickupUpdate scopes tx to the record and its precondition and
// returns the column values to set.
func guardedPickupUpdate(tx *gorm.DB, id string, pre store.Precondition, fields store.Fields) (*gorm.DB, map[string]interface{}, error) {
	q := tx.Model(&pickupModel.Pickup{}).Where("id = ?", id)
	if pre.Status != "" {
		q = q.Where("status = ?", string(pre.Status))
	}
	for _, col := range pre.Unset {
		if !nullableColumns[col] {
			return nil, nil, fmt.Errorf("column %q cannot be used in a precondition", col)
		}
		q = q.Where(col + " IS NULL")
	}

	updates := make(map[string]interface{}, len(fields)+1)
	for col, value := range fields {
		if status, ok := value.(pickupModel.Status); ok {
			value = string(status)
		}
		updates[col] = value
	}
	updates[pickupModel.FieldUpdatedAt] = time.Now()
	return q, updates, nil
}

func (s *GormStore) ListPickups(ctx context.Context, filter store.PickupFilter) ([]pickupModel.Pickup, error) {
	q := s.db.WithContext(ctx).Model(&pickupModel.Pickup{})
	if filter.GeneratorID != "" {
		q = q.Where("generator_id = ?", filter.GeneratorID)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.Pincode != "" {
		q = q.Where("pincode = ?", filter.Pincode)
	}
	if filter.ExcludeStatus != "" {
		q = q.Where("status <> ?", string(filter.ExcludeStatus))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN ?", statuses)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	pickups := make([]pickupModel.Pickup, 0)
	if err := q.Order("created_at DESC, id DESC").Find(&pickups).Error; err != nil {
		return nil, s.translate("list_pickups", err)
	}
	return pickups, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *userModel.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return s.translate("create_user", err)
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*userModel.User, error) {
	var u userModel.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, s.translate("get_user", err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*userModel.User, error) {
	var u userModel.User
	if err := s.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&u).Error; err != nil {
		return nil, s.translate("get_user_by_email", err)
	}
	return &u, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, id string, fields store.Fields) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for col, value := range fields {
		switch col {
		case userModel.FieldIsAvailable, userModel.FieldPincode:
			updates[col] = value
		default:
			return fmt.Errorf("unknown user field %q", col)
		}
	}
	updates[userModel.FieldUpdatedAt] = time.Now()

	res := s.db.WithContext(ctx).Model(&userModel.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return s.translate("update_user", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *GormStore) IncrementPoints(ctx context.Context, userID string, delta int) error {
	res := s.db.WithContext(ctx).Model(&userModel.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"points":                 gorm.Expr("points + ?", delta),
			userModel.FieldUpdatedAt: time.Now(),
		})
	if res.Error != nil {
		return s.translate("increment_points", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}
	return nil
}

func (s *GormStore) AppendStatusEvent(ctx context.Context, ev *pickupModel.StatusEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return s.translate("append_status_event", err)
	}
	return nil
}

// SaveLog persists one sanitized request log row.
func (s *GormStore) SaveLog(ctx context.Context, entry types.LogEntry) error {
	row := logModel.Log{
		Method:          entry.Method,
		URL:             entry.URL,
		RequestBody:     entry.RequestBody,
		RequestHeaders:  entry.RequestHeaders,
		ResponseBody:    entry.ResponseBody,
		ResponseHeaders: entry.ResponseHeaders,
		StatusCode:      entry.StatusCode,
		LatencyMs:       entry.LatencyMs,
		CreatedAt:       entry.CreatedAt,
	}
	if entry.UserID != "" {
		row.UserID = &entry.UserID
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%v: %w", err, store.ErrUnavailable)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%v: %w", err, store.ErrUnavailable)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the store sentinels.
func (s *GormStore) translate(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	default:
		metrics.StoreErrors.WithLabelValues(op).Inc()
		return fmt.Errorf("%s: %v: %w", op, err, store.ErrUnavailable)
	}
}
