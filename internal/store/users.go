package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"supplyline-sync/internal/model"
)

// UserStore holds the local user table operations.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmployeeNumber(ctx context.Context, employeeNumber string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListActiveUsers(ctx context.Context) ([]model.User, error)
	ListUsersByDepartment(ctx context.Context, department string) ([]model.User, error)
	UpsertUser(ctx context.Context, user *model.User) error
	UpsertUsers(ctx context.Context, users []model.User) error
	UpdateUser(ctx context.Context, user *model.User) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	DeleteUser(ctx context.Context, id int64) error
	DeleteAllUsers(ctx context.Context) error
	ReplaceUsers(ctx context.Context, users []model.User) error
	CountUsers(ctx context.Context) (int, error)
	CountActiveUsers(ctx context.Context) (int, error)
	CountActiveUsersByDepartment(ctx context.Context, department string) (int, error)
	CountLocalOnlyUsers(ctx context.Context) (int, error)
}

func (s *gormStore) users(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.User{})
}

func (s *gormStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return first[model.User](s.users(ctx).Where("id = ?", id))
}

func (s *gormStore) GetUserByEmployeeNumber(ctx context.Context, employeeNumber string) (*model.User, error) {
	return first[model.User](s.users(ctx).Where("employee_number = ?", employeeNumber))
}

func (s *gormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return find[model.User](s.users(ctx).Order("name ASC"))
}

func (s *gormStore) ListActiveUsers(ctx context.Context) ([]model.User, error) {
	return find[model.User](s.users(ctx).Where("is_active = ?", true).Order("name ASC"))
}

func (s *gormStore) ListUsersByDepartment(ctx context.Context, department string) ([]model.User, error) {
	return find[model.User](s.users(ctx).
		Where("department = ? AND is_active = ?", department, true).
		Order("name ASC"))
}

func (s *gormStore) UpsertUser(ctx context.Context, user *model.User) error {
	if err := upsertOne(s.db.WithContext(ctx), user); err != nil {
		return err
	}
	s.hub.publish(TableUsers)
	return nil
}

func (s *gormStore) UpsertUsers(ctx context.Context, users []model.User) error {
	if err := upsertAll(ctx, s.db, users); err != nil {
		return err
	}
	s.hub.publish(TableUsers)
	return nil
}

func (s *gormStore) UpdateUser(ctx context.Context, user *model.User) error {
	if user.ID == 0 {
		return nil
	}
	changed, err := update(ctx, s.db, user)
	if err != nil {
		return err
	}
	if changed {
		s.hub.publish(TableUsers)
	}
	return nil
}

func (s *gormStore) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	res := s.users(ctx).Where("id = ?", id).Update("last_login", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.hub.publish(TableUsers)
	}
	return nil
}

func (s *gormStore) DeleteUser(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&model.User{}, id).Error; err != nil {
		return err
	}
	s.hub.publish(TableUsers)
	return nil
}

func (s *gormStore) DeleteAllUsers(ctx context.Context) error {
	if err := deleteAll[model.User](ctx, s.db); err != nil {
		return err
	}
	s.hub.publish(TableUsers)
	return nil
}

func (s *gormStore) ReplaceUsers(ctx context.Context, users []model.User) error {
	if err := replaceAll(ctx, s.db, users); err != nil {
		return err
	}
	s.hub.publish(TableUsers)
	return nil
}

func (s *gormStore) CountUsers(ctx context.Context) (int, error) {
	return count(s.users(ctx))
}

func (s *gormStore) CountActiveUsers(ctx context.Context) (int, error) {
	return count(s.users(ctx).Where("is_active = ?", true))
}

func (s *gormStore) CountActiveUsersByDepartment(ctx context.Context, department string) (int, error) {
	return count(s.users(ctx).Where("department = ? AND is_active = ?", department, true))
}

func (s *gormStore) CountLocalOnlyUsers(ctx context.Context) (int, error) {
	return count(s.users(ctx).Where("client_ref <> ''"))
}
