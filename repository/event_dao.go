package repository

import (
	"fmt"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"github.com/Josef-miguel/tripchat-sdk/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventDAO 行程的只读访问。行程本身归外部业务管，
// 这里只做两件事：查归属（我拥有哪些行程）和查标题。
type EventDAO struct {
	db *gorm.DB
}

func NewEventDAO(db *gorm.DB) *EventDAO {
	return &EventDAO{db: db}
}

// FindByID 查单个行程
func (dao *EventDAO) FindByID(eventID string) (*models.Event, error) {
	var evt models.Event
	if err := dao.db.Where("id = ?", eventID).First(&evt).Error; err != nil {
		return nil, err
	}
	return &evt, nil
}

// OwnedEventIDs 查 uid 拥有的行程 ID。
// 老数据的归属列有历史变体（cons.EventOwnerFields + creator.uid），
// 每个变体单独查、单独失败：坏掉一个不挡其他的，失败原样带回给调用方记日志。
func (dao *EventDAO) OwnedEventIDs(uid string) ([]string, []error) {
	seen := make(map[string]struct{})
	var ids []string
	var errs []error

	collect := func(batch []string) {
		for _, id := range batch {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	for _, field := range cons.EventOwnerFields {
		var batch []string
		err := dao.db.Model(&models.Event{}).
			Where(field+" = ?", uid).
			Pluck("id", &batch).Error
		if err != nil {
			errs = append(errs, fmt.Errorf("owner field %s: %w", field, err))
			continue
		}
		collect(batch)
	}

	// creator JSON 里的 uid（变体4）
	var batch []string
	err := dao.db.Model(&models.Event{}).
		Where(datatypes.JSONQuery(cons.EventOwnerJSONField).Equals(uid, "uid")).
		Pluck("id", &batch).Error
	if err != nil {
		errs = append(errs, fmt.Errorf("owner field %s.uid: %w", cons.EventOwnerJSONField, err))
	} else {
		collect(batch)
	}

	return ids, errs
}
