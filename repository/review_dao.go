package repository

import (
	"github.com/Josef-miguel/tripchat-sdk/models"
	"gorm.io/gorm"
)

// ReviewDAO 行程评价/评论的数据库操作
type ReviewDAO struct {
	db *gorm.DB
}

func NewReviewDAO(db *gorm.DB) *ReviewDAO {
	return &ReviewDAO{db: db}
}

// Create 写入一条评论
func (dao *ReviewDAO) Create(review *models.Review) error {
	return dao.db.Create(review).Error
}

// ListByEvent 按创建时间升序取行程全部评论。
// 订阅回调拿全量列表自己按基线做差分，和消息流一个口径。
func (dao *ReviewDAO) ListByEvent(eventID string) ([]models.Review, error) {
	var reviews []models.Review
	err := dao.db.Where("event_id = ?", eventID).
		Order("created_at ASC, id ASC").
		Find(&reviews).Error
	return reviews, err
}
