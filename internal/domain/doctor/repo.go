package doctor

import "context"

// Repository is the credential store. Lookups return an error wrapping
// apperr.ErrNotFound when no doctor matches; Create maps unique violations to
// apperr.ErrDuplicateEmail / apperr.ErrDuplicateCRM.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	GetByCRM(ctx context.Context, crm string) (*Doctor, error)
}
