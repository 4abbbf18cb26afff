package featurestore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/energy-price-forecast/internal/metrics"
)

// fakePlatform records every call in order.
type fakePlatform struct {
	calls     []string
	groups    map[string][]Resource
	views     map[string][]Resource
	models    map[string][]Resource
	secrets   map[string]bool
	deleteErr map[string]error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		groups:    map[string][]Resource{},
		views:     map[string][]Resource{},
		models:    map[string][]Resource{},
		secrets:   map[string]bool{},
		deleteErr: map[string]error{},
	}
}

func (f *fakePlatform) FeatureGroups(_ context.Context, name string) ([]Resource, error) {
	f.calls = append(f.calls, "list feature_group "+name)
	return f.groups[name], nil
}

func (f *fakePlatform) FeatureViews(_ context.Context, name string) ([]Resource, error) {
	f.calls = append(f.calls, "list feature_view "+name)
	return f.views[name], nil
}

func (f *fakePlatform) Delete(_ context.Context, r Resource) error {
	f.calls = append(f.calls, "delete "+string(r.Kind)+" "+r.String())
	return f.deleteErr[r.String()]
}

func (f *fakePlatform) Models(_ context.Context, name string) ([]Resource, error) {
	f.calls = append(f.calls, "list model "+name)
	return f.models[name], nil
}

func (f *fakePlatform) DeleteModel(_ context.Context, r Resource) error {
	f.calls = append(f.calls, "delete model "+r.String())
	return f.deleteErr[r.String()]
}

func (f *fakePlatform) DeleteSecret(_ context.Context, name string) error {
	f.calls = append(f.calls, "delete secret "+name)
	if !f.secrets[name] {
		return NotFound(KindSecret, name)
	}
	return nil
}

func TestPurgeOrderWithEverythingMissing(t *testing.T) {
	f := newFakePlatform()
	admin := NewAdmin(f, f, f, nil)

	outcomes, err := admin.Purge(context.Background(), DefaultPurgePlan())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"list feature_view air_quality_fv",
		"list feature_group air_quality",
		"list feature_group weather",
		"list feature_group aq_predictions",
		"list model air_quality_xgboost_model",
		"delete secret SENSOR_LOCATION_JSON",
	}, f.calls)
	require.Len(t, outcomes, 6)
	for _, o := range outcomes {
		assert.Equal(t, Missing, o.Result, o.String())
	}
}

func TestPurgeDeletesEveryVersion(t *testing.T) {
	f := newFakePlatform()
	f.views["air_quality_fv"] = []Resource{{Kind: KindFeatureView, Name: "air_quality_fv", Version: 1}}
	f.groups["weather"] = []Resource{
		{Kind: KindFeatureGroup, Name: "weather", Version: 1},
		{Kind: KindFeatureGroup, Name: "weather", Version: 2},
	}
	f.models["air_quality_xgboost_model"] = []Resource{{Kind: KindModel, Name: "air_quality_xgboost_model", Version: 3}}
	f.secrets["SENSOR_LOCATION_JSON"] = true

	m := metrics.NewRecorder()
	outcomes, err := NewAdmin(f, f, f, m).Purge(context.Background(), DefaultPurgePlan())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"list feature_view air_quality_fv",
		"delete feature_view air_quality_fv/1",
		"list feature_group air_quality",
		"list feature_group weather",
		"delete feature_group weather/1",
		"delete feature_group weather/2",
		"list feature_group aq_predictions",
		"list model air_quality_xgboost_model",
		"delete model air_quality_xgboost_model/3",
		"delete secret SENSOR_LOCATION_JSON",
	}, f.calls)

	var deleted int
	for _, o := range outcomes {
		if o.Result == Deleted {
			deleted++
		}
	}
	assert.Equal(t, 5, deleted)
}

func TestPurgeContinuesAfterFailure(t *testing.T) {
	f := newFakePlatform()
	f.views["air_quality_fv"] = []Resource{{Kind: KindFeatureView, Name: "air_quality_fv", Version: 1}}
	f.deleteErr["air_quality_fv/1"] = errors.New("permission denied")
	f.groups["air_quality"] = []Resource{{Kind: KindFeatureGroup, Name: "air_quality", Version: 1}}
	f.deleteErr["air_quality/1"] = NotFound(KindFeatureGroup, "air_quality")

	outcomes, err := NewAdmin(f, f, f, nil).Purge(context.Background(), DefaultPurgePlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Contains(t, err.Error(), "air_quality_fv/1")
	assert.NotContains(t, err.Error(), "air_quality/1")

	assert.Equal(t, Failed, outcomes[0].Result)
	assert.Equal(t, Missing, outcomes[1].Result)
	assert.Contains(t, f.calls, "delete secret SENSOR_LOCATION_JSON")
}

func TestListFailureIsReported(t *testing.T) {
	admin := NewAdmin(&failingLister{}, nil, nil, nil)

	outcomes := admin.DeleteFeatureGroups(context.Background(), "weather")
	require.Len(t, outcomes, 1)
	assert.Equal(t, Failed, outcomes[0].Result)
	assert.Equal(t, "weather", outcomes[0].Resource.Name)
}

type failingLister struct{ fakePlatform }

func (failingLister) FeatureGroups(context.Context, string) ([]Resource, error) {
	return nil, errors.New("store unreachable")
}
