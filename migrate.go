package tripchat_sdk

import (
	"fmt"
	"log"

	"github.com/Josef-miguel/tripchat-sdk/cons"
	"gorm.io/gorm"
)

// BackfillEventOwners 把历史遗留的拥有者字段回填到规范的 uid 列。
// 旧数据里行程拥有者可能写在 owner_id / user_id / creator(JSON) 任意一处，
// 回填后新代码可以只查 uid，但查询侧仍保留多字段兜底。
// 警告：会批量 UPDATE events 表，生产环境使用前请备份数据。
func (c *Engine) BackfillEventOwners() error {
	db := c.config.DB
	tableName := c.config.TablePrefix + "event"

	log.Printf("开始回填 %s 表的 uid 字段...", tableName)

	if !db.Migrator().HasTable(tableName) {
		log.Printf("表 %s 不存在，跳过回填", tableName)
		return nil
	}

	if !isValidTableName(tableName) {
		return fmt.Errorf("invalid table name: %s", tableName)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		// 1) 标量遗留列，按优先级依次兜底
		for _, legacy := range cons.EventOwnerFields {
			if legacy == "uid" {
				continue
			}
			if !tx.Migrator().HasColumn(tableName, legacy) {
				continue
			}
			res := tx.Exec(fmt.Sprintf(
				"UPDATE `%s` SET `uid` = `%s` WHERE (`uid` IS NULL OR `uid` = '') AND `%s` IS NOT NULL AND `%s` <> ''",
				tableName, legacy, legacy, legacy,
			))
			if res.Error != nil {
				return fmt.Errorf("回填 %s 失败: %v", legacy, res.Error)
			}
			if res.RowsAffected > 0 {
				log.Printf("从 %s 回填 %d 行", legacy, res.RowsAffected)
			}
		}

		// 2) creator JSON 里的嵌套 uid
		if tx.Migrator().HasColumn(tableName, cons.EventOwnerJSONField) {
			res := tx.Exec(fmt.Sprintf(
				"UPDATE `%s` SET `uid` = JSON_UNQUOTE(JSON_EXTRACT(`%s`, '$.uid')) "+
					"WHERE (`uid` IS NULL OR `uid` = '') AND JSON_EXTRACT(`%s`, '$.uid') IS NOT NULL",
				tableName, cons.EventOwnerJSONField, cons.EventOwnerJSONField,
			))
			if res.Error != nil {
				return fmt.Errorf("回填 creator 失败: %v", res.Error)
			}
			if res.RowsAffected > 0 {
				log.Printf("从 creator 回填 %d 行", res.RowsAffected)
			}
		}

		log.Println("回填完成！")
		return nil
	})
}

// isValidTableName 验证表名格式，防止 SQL 注入
func isValidTableName(name string) bool {
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return len(name) > 0 && len(name) < 64 // MySQL 表名最大 64 字符
}
