package repo

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")
var ErrUserAlreadyExist = errors.New("user already exist")

type GormRepo struct {
	DB *gorm.DB
}
