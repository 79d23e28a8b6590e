package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/aristath/replica/internal/domain"
	"github.com/aristath/replica/internal/modules/filter"
	"github.com/aristath/replica/internal/modules/optimization"
	"github.com/aristath/replica/internal/modules/panel"
	"github.com/aristath/replica/internal/modules/pipeline"
	"github.com/aristath/replica/internal/modules/prices"
)

// AssetFile locates the price table of one asset.
type AssetFile struct {
	Path        string `yaml:"path" validate:"required"`
	DateColumn  string `yaml:"date_column" validate:"required"`
	PriceColumn string `yaml:"price_column" validate:"required"`
}

// WindowRange is an inclusive YYYY-MM-DD range; an empty side is open.
type WindowRange struct {
	Start string `yaml:"start" validate:"omitempty,datetime=2006-01-02"`
	End   string `yaml:"end" validate:"omitempty,datetime=2006-01-02"`
}

// WindowRanges holds the train, validation and test ranges.
type WindowRanges struct {
	Train      WindowRange `yaml:"train"`
	Validation WindowRange `yaml:"validation"`
	Test       WindowRange `yaml:"test"`
}

// WinsorConfig holds the clipping quantiles.
type WinsorConfig struct {
	Lower *float64 `yaml:"lower" validate:"required,gte=0,lte=1"`
	Upper *float64 `yaml:"upper" validate:"required,gte=0,lte=1"`
}

// StaticConfig holds the constrained regression parameters.
type StaticConfig struct {
	Leverage      *float64 `yaml:"leverage" validate:"required,gte=0"`
	Cap           *float64 `yaml:"cap" validate:"required,gte=0"`
	Ridge         *float64 `yaml:"ridge" validate:"required,gte=0"`
	MaxIterations *int     `yaml:"max_iterations" validate:"required,gt=0"`
}

// FilterConfig holds the Kalman noise variances.
type FilterConfig struct {
	ProcessNoise     *float64 `yaml:"process_noise" validate:"required,gte=0"`
	ObservationNoise *float64 `yaml:"observation_noise" validate:"required,gt=0"`
}

// Model is the model configuration file. Every numeric parameter is a
// pointer so that a missing key is distinguishable from zero.
type Model struct {
	Target   string               `yaml:"target" validate:"required"`
	Basket   []string             `yaml:"basket" validate:"required,min=1,unique,dive,required"`
	DayFirst *bool                `yaml:"day_first" validate:"required"`
	Assets   map[string]AssetFile `yaml:"assets" validate:"required,dive"`
	Windows  WindowRanges         `yaml:"windows"`
	Winsor   WinsorConfig         `yaml:"winsor"`
	Static   StaticConfig         `yaml:"static"`
	Filter   FilterConfig         `yaml:"filter"`
	NavBase  *float64             `yaml:"nav_base" validate:"required,gt=0"`
	Workers  int                  `yaml:"workers" validate:"gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadModel reads and validates the model file at path. Relative asset
// paths are resolved against the file's directory.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model config: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model config path: %w", err)
	}
	return ParseModel(data, filepath.Dir(absPath))
}

// ParseModel decodes and validates a model document. Unknown keys are
// rejected.
func ParseModel(data []byte, baseDir string) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse model config: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	for name, f := range m.Assets {
		if !filepath.IsAbs(f.Path) {
			f.Path = filepath.Join(baseDir, f.Path)
			m.Assets[name] = f
		}
	}
	return &m, nil
}

// Validate runs the struct tag rules and then the cross-field rules.
// Cross-field rules only run once every field is present.
func (m *Model) Validate() error {
	if err := validate.Struct(m); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		errs := make(ValidationErrors, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{Field: fieldPath(fe.Namespace()), Message: tagMessage(fe)})
		}
		return errs
	}

	var errs ValidationErrors
	for _, b := range m.Basket {
		if b == m.Target {
			errs = append(errs, ValidationError{Field: "basket", Message: fmt.Sprintf("target %q cannot be part of the basket", b)})
		}
	}
	for _, a := range append([]string{m.Target}, m.Basket...) {
		if _, ok := m.Assets[a]; !ok {
			errs = append(errs, ValidationError{Field: "assets", Message: fmt.Sprintf("no price file for %q", a)})
		}
	}
	if *m.Winsor.Lower >= *m.Winsor.Upper {
		errs = append(errs, ValidationError{Field: "winsor", Message: "lower quantile must be below upper quantile"})
	}
	if ws, err := m.windows(); err != nil {
		errs = append(errs, ValidationError{Field: "windows", Message: err.Error()})
	} else if err := ws.Validate(); err != nil {
		errs = append(errs, ValidationError{Field: "windows", Message: err.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Pipeline converts the model into the pipeline's explicit inputs.
func (m *Model) Pipeline() (pipeline.Config, error) {
	ws, err := m.windows()
	if err != nil {
		return pipeline.Config{}, err
	}

	basket := make([]domain.AssetID, len(m.Basket))
	for i, b := range m.Basket {
		basket[i] = domain.AssetID(b)
	}

	cfg := pipeline.Config{
		Schema:      panel.Schema{Target: domain.AssetID(m.Target), Basket: basket},
		DayFirst:    *m.DayFirst,
		Windows:     ws,
		WinsorLower: *m.Winsor.Lower,
		WinsorUpper: *m.Winsor.Upper,
		Static: optimization.StaticParams{
			Leverage:      *m.Static.Leverage,
			Cap:           *m.Static.Cap,
			Ridge:         *m.Static.Ridge,
			MaxIterations: *m.Static.MaxIterations,
		},
		Filter: filter.Params{
			ProcessNoise:     *m.Filter.ProcessNoise,
			ObservationNoise: *m.Filter.ObservationNoise,
		},
		NavBase: *m.NavBase,
		Workers: m.Workers,
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, fmt.Errorf("invalid model config: %w", err)
	}
	return cfg, nil
}

// Source returns a CSV source over the configured asset files.
func (m *Model) Source() *prices.CSVSource {
	files := make(map[domain.AssetID]prices.FileSpec, len(m.Assets))
	for name, f := range m.Assets {
		files[domain.AssetID(name)] = prices.FileSpec{
			Path:        f.Path,
			DateColumn:  f.DateColumn,
			PriceColumn: f.PriceColumn,
		}
	}
	return prices.NewCSVSource(files)
}

func (m *Model) windows() (panel.Windows, error) {
	build := func(name panel.WindowName, r WindowRange) (panel.Window, error) {
		w := panel.Window{Name: name}
		var err error
		if r.Start != "" {
			if w.Start, err = time.Parse(domain.DateLayout, r.Start); err != nil {
				return w, fmt.Errorf("%s start: %w", name, err)
			}
		}
		if r.End != "" {
			if w.End, err = time.Parse(domain.DateLayout, r.End); err != nil {
				return w, fmt.Errorf("%s end: %w", name, err)
			}
		}
		return w, nil
	}

	var ws panel.Windows
	var err error
	if ws.Train, err = build(panel.Train, m.Windows.Train); err != nil {
		return ws, err
	}
	if ws.Validation, err = build(panel.Validation, m.Windows.Validation); err != nil {
		return ws, err
	}
	if ws.Test, err = build(panel.Test, m.Windows.Test); err != nil {
		return ws, err
	}
	return ws, nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "min":
		return "needs at least " + fe.Param() + " entries"
	case "unique":
		return "must not contain duplicates"
	case "datetime":
		return "must be a YYYY-MM-DD date"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
