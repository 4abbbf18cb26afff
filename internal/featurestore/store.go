package featurestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrResourceNotFound is returned when a named store resource does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// Kind names a resource collection of the feature-store platform.
type Kind string

const (
	KindFeatureGroup Kind = "feature_group"
	KindFeatureView  Kind = "feature_view"
	KindModel        Kind = "model"
	KindSecret       Kind = "secret"
)

// Resource identifies one version of a named store resource.
type Resource struct {
	Kind    Kind
	Name    string
	Version int
}

func (r Resource) String() string {
	if r.Kind == KindSecret {
		return r.Name
	}
	return fmt.Sprintf("%s/%d", r.Name, r.Version)
}

// NotFound builds an ErrResourceNotFound error naming the missing resource.
func NotFound(kind Kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrResourceNotFound, kind, name)
}

// FeatureRow is one dated row of named numeric features.
type FeatureRow struct {
	Date   time.Time
	Values map[string]float64
}

// Columns returns the row's column names in sorted order.
func (r FeatureRow) Columns() []string {
	cols := make([]string, 0, len(r.Values))
	for k := range r.Values {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// WriteOptions mirrors the insert options of the platform.
type WriteOptions struct {
	// WaitForJob blocks Insert until the write is durable.
	WaitForJob bool
}

// FeatureReader reads all rows of one feature group.
type FeatureReader interface {
	Read(ctx context.Context) ([]FeatureRow, error)
}

// FeatureWriter inserts rows into one feature group.
type FeatureWriter interface {
	Insert(ctx context.Context, rows []FeatureRow, opts WriteOptions) error
}

// FeatureGroupStore lists and deletes feature groups and views by name.
type FeatureGroupStore interface {
	FeatureGroups(ctx context.Context, name string) ([]Resource, error)
	FeatureViews(ctx context.Context, name string) ([]Resource, error)
	Delete(ctx context.Context, r Resource) error
}

// ModelRegistry lists and deletes registered models by name.
type ModelRegistry interface {
	Models(ctx context.Context, name string) ([]Resource, error)
	DeleteModel(ctx context.Context, r Resource) error
}

// SecretStore deletes secrets by name.
type SecretStore interface {
	DeleteSecret(ctx context.Context, name string) error
}
