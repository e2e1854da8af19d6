package repository

import (
	"errors"

	"gorm.io/gorm"
)

// IsNotFound 是否为记录不存在
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// IsDuplicate reports a unique constraint violation (requires TranslateError).
func IsDuplicate(err error) bool { return errors.Is(err, gorm.ErrDuplicatedKey) }

func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 10
	}
	return offset, limit
}
