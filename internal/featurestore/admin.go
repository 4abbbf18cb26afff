package featurestore

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/energy-price-forecast/internal/metrics"
)

// Result classifies the outcome of one deletion.
type Result string

const (
	Deleted Result = "deleted"
	Missing Result = "not_found"
	Failed  Result = "failed"
)

// Outcome is the result of deleting one resource version.
type Outcome struct {
	Resource Resource
	Result   Result
	Err      error
}

func (o Outcome) String() string {
	if o.Err != nil && o.Result == Failed {
		return fmt.Sprintf("%s %s: %s: %v", o.Resource.Kind, o.Resource, o.Result, o.Err)
	}
	return fmt.Sprintf("%s %s: %s", o.Resource.Kind, o.Resource, o.Result)
}

// Admin runs destructive maintenance against the feature-store platform.
// Missing resources are reported as Missing outcomes, never as errors.
type Admin struct {
	groups  FeatureGroupStore
	models  ModelRegistry
	secrets SecretStore
	metrics *metrics.Recorder
}

func NewAdmin(groups FeatureGroupStore, models ModelRegistry, secrets SecretStore, m *metrics.Recorder) *Admin {
	return &Admin{groups: groups, models: models, secrets: secrets, metrics: m}
}

// DeleteFeatureGroups deletes every version of the named feature group.
func (a *Admin) DeleteFeatureGroups(ctx context.Context, name string) []Outcome {
	return a.deleteAll(ctx, KindFeatureGroup, name, a.groups.FeatureGroups, a.groups.Delete)
}

// DeleteFeatureViews deletes every version of the named feature view.
func (a *Admin) DeleteFeatureViews(ctx context.Context, name string) []Outcome {
	return a.deleteAll(ctx, KindFeatureView, name, a.groups.FeatureViews, a.groups.Delete)
}

// DeleteModels deletes every registered version of the named model.
func (a *Admin) DeleteModels(ctx context.Context, name string) []Outcome {
	return a.deleteAll(ctx, KindModel, name, a.models.Models, a.models.DeleteModel)
}

// DeleteSecret deletes the named secret.
func (a *Admin) DeleteSecret(ctx context.Context, name string) Outcome {
	r := Resource{Kind: KindSecret, Name: name}
	return a.record(r, a.secrets.DeleteSecret(ctx, name))
}

func (a *Admin) deleteAll(
	ctx context.Context,
	kind Kind,
	name string,
	list func(context.Context, string) ([]Resource, error),
	del func(context.Context, Resource) error,
) []Outcome {
	versions, err := list(ctx, name)
	if err != nil {
		return []Outcome{a.record(Resource{Kind: kind, Name: name}, err)}
	}
	if len(versions) == 0 {
		log.Printf("INFO: no %s named %q, nothing to delete", kind, name)
		return []Outcome{a.record(Resource{Kind: kind, Name: name}, NotFound(kind, name))}
	}

	out := make([]Outcome, 0, len(versions))
	for _, v := range versions {
		out = append(out, a.record(v, del(ctx, v)))
	}
	return out
}

func (a *Admin) record(r Resource, err error) Outcome {
	o := Outcome{Resource: r, Err: err}
	switch {
	case err == nil:
		o.Result = Deleted
		log.Printf("INFO: deleted %s %s", r.Kind, r)
	case errors.Is(err, ErrResourceNotFound):
		o.Result = Missing
		log.Printf("INFO: %s %s not found, skipping", r.Kind, r)
	default:
		o.Result = Failed
		log.Printf("ERROR: failed to delete %s %s: %v", r.Kind, r, err)
	}
	a.metrics.PurgeOutcome(string(r.Kind), string(o.Result))
	return o
}

// PurgePlan names the resources torn down by Purge.
type PurgePlan struct {
	FeatureViews  []string
	FeatureGroups []string
	Models        []string
	Secrets       []string
}

// DefaultPurgePlan returns the resources created by the forecasting pipeline.
func DefaultPurgePlan() PurgePlan {
	return PurgePlan{
		FeatureViews:  []string{"air_quality_fv"},
		FeatureGroups: []string{"air_quality", "weather", "aq_predictions"},
		Models:        []string{"air_quality_xgboost_model"},
		Secrets:       []string{"SENSOR_LOCATION_JSON"},
	}
}

// Purge deletes, in order, feature views, feature groups, models and secrets.
// Views go first because the store refuses to drop groups they depend on.
// Every step runs even after a failure; failures are returned together.
func (a *Admin) Purge(ctx context.Context, plan PurgePlan) ([]Outcome, error) {
	var outcomes []Outcome

	for _, name := range plan.FeatureViews {
		outcomes = append(outcomes, a.DeleteFeatureViews(ctx, name)...)
	}
	for _, name := range plan.FeatureGroups {
		outcomes = append(outcomes, a.DeleteFeatureGroups(ctx, name)...)
	}
	for _, name := range plan.Models {
		outcomes = append(outcomes, a.DeleteModels(ctx, name)...)
	}
	for _, name := range plan.Secrets {
		outcomes = append(outcomes, a.DeleteSecret(ctx, name))
	}

	var result *multierror.Error
	for _, o := range outcomes {
		if o.Result == Failed {
			result = multierror.Append(result, fmt.Errorf("%s %s: %w", o.Resource.Kind, o.Resource, o.Err))
		}
	}
	return outcomes, result.ErrorOrNil()
}
