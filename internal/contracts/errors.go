package contracts

import (
	"errors"
	"fmt"
)

// ValidationError is the only hard failure of the engine
// 예: 비중 합계가 1.0에서 1% 이상 벗어난 포트폴리오
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	// ErrSnapshotsDisabled is returned when no database is configured
	ErrSnapshotsDisabled = errors.New("portfolio snapshots are disabled (DATABASE_URL not set)")

	// ErrProfileRequired is returned when a request carries no investor profile
	ErrProfileRequired = errors.New("investor profile is required")
)

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
