package frameindex

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

// ErrNotLoaded is returned by queries issued before the first successful load.
var ErrNotLoaded = apperrors.ErrNotLoaded

// DegenerateStatisticsError is raised for empty populations and for ratios
// whose min equals max.
type DegenerateStatisticsError = frame.DegenerateStatisticsError

// LoadError wraps any failure that prevented a new snapshot from being
// published. The previous snapshot stays in place.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading frames from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == apperrors.ErrLoadFailed
}

// Tree levels, outermost first.
const (
	LevelBrand = "brand"
	LevelModel = "model"
	LevelSize  = "size"
	LevelYear  = "year"
	LevelID    = "id"
)

// NotFoundError reports the first path segment, or frame id, that does not
// exist in the current snapshot.
type NotFoundError struct {
	Level string
	Path  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Level, strings.Join(e.Path, "/"))
}

func (e *NotFoundError) Is(target error) bool {
	return target == apperrors.ErrNotFound
}

// DuplicateError is returned by BuildTree under FailOnDuplicate when two
// records share a (brand, model, size, year) tuple.
type DuplicateError struct {
	Path        frame.Path
	ExistingID  string
	DuplicateID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate frame %s/%s/%s/%s: id %s conflicts with %s",
		e.Path.Brand, e.Path.Model, e.Path.Size, e.Path.Year, e.DuplicateID, e.ExistingID)
}

func (e *DuplicateError) Is(target error) bool {
	return target == apperrors.ErrDuplicateFrame
}
