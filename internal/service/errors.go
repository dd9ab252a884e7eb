package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/laptop_shop/internal/repo"
)

var (
	ErrValidation   = errors.New("validation")   // 400
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 409
	ErrOutOfStock   = fmt.Errorf("%w: out of stock", ErrConflict)
)

// translate maps storage errors onto the service taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repo.ErrOutOfStock):
		return ErrOutOfStock
	case errors.Is(err, repo.ErrNotShipped):
		return fmt.Errorf("%w: order is not shipped", ErrConflict)
	case errors.Is(err, repo.ErrAdminExist), errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	default:
		return err
	}
}
