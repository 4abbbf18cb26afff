package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/energy-price-forecast/internal/featurestore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(d int) time.Time {
	return time.Date(2025, 12, d, 0, 0, 0, 0, time.UTC)
}

func TestFeatureGroupInsertAndRead(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fg, err := s.FeatureGroup(ctx, "weather", 1)
	require.NoError(t, err)

	err = fg.Insert(ctx, []featurestore.FeatureRow{
		{Date: day(26), Values: map[string]float64{"temperature_2m_mean_umea": -3.5}},
		{Date: time.Date(2025, 12, 25, 18, 0, 0, 0, time.UTC), Values: map[string]float64{"temperature_2m_mean_umea": -1}},
	}, featurestore.WriteOptions{WaitForJob: true})
	require.NoError(t, err)

	// same day again replaces the row
	err = fg.Insert(ctx, []featurestore.FeatureRow{
		{Date: day(26), Values: map[string]float64{"temperature_2m_mean_umea": -4}},
	}, featurestore.WriteOptions{})
	require.NoError(t, err)

	rows, err := fg.Read(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day(25), rows[0].Date)
	assert.Equal(t, day(26), rows[1].Date)
	assert.Equal(t, -4.0, rows[1].Values["temperature_2m_mean_umea"])
}

func TestDeleteFeatureGroupRemovesRows(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	fg, err := s.FeatureGroup(ctx, "weather", 1)
	require.NoError(t, err)
	require.NoError(t, fg.Insert(ctx, []featurestore.FeatureRow{{Date: day(24), Values: map[string]float64{"a": 1}}}, featurestore.WriteOptions{}))

	groups, err := s.FeatureGroups(ctx, "weather")
	require.NoError(t, err)
	require.Equal(t, []featurestore.Resource{{Kind: featurestore.KindFeatureGroup, Name: "weather", Version: 1}}, groups)

	require.NoError(t, s.Delete(ctx, groups[0]))
	err = s.Delete(ctx, groups[0])
	assert.True(t, errors.Is(err, featurestore.ErrResourceNotFound))

	fg, err = s.FeatureGroup(ctx, "weather", 1)
	require.NoError(t, err)
	rows, err := fg.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestModelRegistry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	v1, err := s.RegisterModel(ctx, "price_model", []byte(`{"v":1}`))
	require.NoError(t, err)
	v2, err := s.RegisterModel(ctx, "price_model", []byte(`{"v":2}`))
	require.NoError(t, err)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)

	latest, err := s.ModelArtifact(ctx, "price_model", 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(latest))

	first, err := s.ModelArtifact(ctx, "price_model", 1)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(first))

	_, err = s.ModelArtifact(ctx, "other", 0)
	assert.True(t, errors.Is(err, featurestore.ErrResourceNotFound))
}

func TestPurgeLocalStore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.FeatureGroup(ctx, "air_quality", 1)
	require.NoError(t, err)
	require.NoError(t, s.CreateFeatureView(ctx, "air_quality_fv", 1))
	_, err = s.RegisterModel(ctx, "air_quality_xgboost_model", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, s.PutSecret(ctx, "SENSOR_LOCATION_JSON", []byte(`{"city":"Umea"}`)))

	outcomes, err := featurestore.NewAdmin(s, s, s, nil).Purge(ctx, featurestore.DefaultPurgePlan())
	require.NoError(t, err)

	var deleted, missing int
	for _, o := range outcomes {
		switch o.Result {
		case featurestore.Deleted:
			deleted++
		case featurestore.Missing:
			missing++
		}
	}
	assert.Equal(t, 4, deleted)
	assert.Equal(t, 2, missing) // weather and aq_predictions

	views, err := s.FeatureViews(ctx, "air_quality_fv")
	require.NoError(t, err)
	assert.Empty(t, views)

	// a second purge finds nothing and still succeeds
	_, err = featurestore.NewAdmin(s, s, s, nil).Purge(ctx, featurestore.DefaultPurgePlan())
	assert.NoError(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}
