package transform

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tiled/internal/axes"
)

// Params holds the string parameters of a transform, as given on the command line.
type Params map[string]string

// ParseParams reads "key=value" pairs.
func ParseParams(pairs []string) (Params, error) {
	p := make(Params, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.Errorf("parameter %q is not key=value", kv)
		}
		p[k] = strings.TrimSpace(v)
	}
	return p, nil
}

// Float returns parameter key as a float, or def when unset.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parameter %s", key)
	}
	return f, nil
}

// Int returns parameter key as an int, or def when unset.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parameter %s", key)
	}
	return n, nil
}

// Spec selects and configures a transform.
// InputAxes and OutputAxes override the transform's default layout.
type Spec struct {
	Name       string
	Params     Params
	InputAxes  []axes.Axis
	OutputAxes []axes.Axis
}

// Factory builds a transform from a spec.
type Factory func(spec Spec) (Transform, error)

// Registry maps transform names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry holding the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
	}

	r.Register("identity", newIdentity)
	r.Register("scale", newScale)
	r.Register("mean_filter", newMeanFilter)
	r.Register("project_max", newProjection(projectMax))
	r.Register("project_mean", newProjection(projectMean))

	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Build creates the transform named by spec.
func (r *Registry) Build(spec Spec) (Transform, error) {
	f, ok := r.factories[spec.Name]
	if !ok {
		return nil, errors.Errorf("unknown transform %q (have %s)", spec.Name, strings.Join(r.Names(), ", "))
	}
	t, err := f(spec)
	if err != nil {
		return nil, errors.WithMessagef(err, "build transform %s", spec.Name)
	}
	return t, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
