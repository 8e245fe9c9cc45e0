package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserDAO 封装 User 相关的数据库操作
type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

func (dao *UserDAO) Create(user *User) error {
	return dao.db.Create(user).Error
}

func (dao *UserDAO) FindByUID(uid string) (*User, error) {
	var u User
	if err := dao.db.Where("uid = ?", uid).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (dao *UserDAO) FindByUsername(username string) (*User, error) {
	var u User
	if err := dao.db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateJoinedEvents 覆盖写 joined_events（调用方负责先读改后写）
func (dao *UserDAO) UpdateJoinedEvents(uid string, events datatypes.JSON) error {
	return dao.db.Model(&User{}).
		Where("uid = ?", uid).
		Updates(map[string]any{"joined_events": events}).Error
}

// TouchLastLogin 更新最后登录时间
func (dao *UserDAO) TouchLastLogin(uid string, at time.Time) error {
	return dao.db.Model(&User{}).
		Where("uid = ?", uid).
		Update("last_login_at", at).Error
}

// ListUIDsJoinedEvent 行程名单：joined_events 包含 eventID 的全部 UID。
// 这是群成员的权威来源（array-contains 语义）。
func (dao *UserDAO) ListUIDsJoinedEvent(eventID string) ([]string, error) {
	var uids []string
	err := dao.db.Model(&User{}).
		Where(datatypes.JSONArrayQuery("joined_events").Contains(eventID)).
		Order("uid ASC").
		Pluck("uid", &uids).Error
	return uids, err
}
