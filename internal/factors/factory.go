package factors

import (
	"fmt"
	"math"
	"sort"

	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// Provider kinds understood by the default factory.
const (
	KindMomentum           = "momentum"
	KindReversal           = "reversal"
	KindVolatility         = "volatility"
	KindVolumeRatio        = "volume_ratio"
	KindLiquidityDeviation = "liquidity_deviation"
)

// Constructor builds a provider from its persisted spec.
type Constructor func(spec contracts.FactorSpec, log *logger.Logger) (contracts.SignalProvider, error)

// Factory resolves FactorSpec computation references into providers.
// It is built by caller setup code; nothing registers itself at import time.
type Factory struct {
	ctors  map[string]Constructor
	logger *logger.Logger
}

// NewFactory creates a factory with the built-in provider kinds
func NewFactory(log *logger.Logger) *Factory {
	f := &Factory{ctors: make(map[string]Constructor), logger: orNop(log)}
	f.ctors[KindMomentum] = func(s contracts.FactorSpec, l *logger.Logger) (contracts.SignalProvider, error) {
		w, err := intParam(s, "window", 20)
		if err != nil {
			return nil, err
		}
		return NewMomentum(s.Name, w, "close", l)
	}
	f.ctors[KindReversal] = func(s contracts.FactorSpec, l *logger.Logger) (contracts.SignalProvider, error) {
		w, err := intParam(s, "window", 5)
		if err != nil {
			return nil, err
		}
		return NewReversal(s.Name, w, "close", l)
	}
	f.ctors[KindVolatility] = func(s contracts.FactorSpec, l *logger.Logger) (contracts.SignalProvider, error) {
		w, err := intParam(s, "window", 20)
		if err != nil {
			return nil, err
		}
		return NewVolatility(s.Name, w, "close", l)
	}
	f.ctors[KindVolumeRatio] = func(s contracts.FactorSpec, l *logger.Logger) (contracts.SignalProvider, error) {
		w, err := intParam(s, "window", 10)
		if err != nil {
			return nil, err
		}
		return NewVolumeRatio(s.Name, w, l)
	}
	f.ctors[KindLiquidityDeviation] = func(s contracts.FactorSpec, l *logger.Logger) (contracts.SignalProvider, error) {
		return NewLiquidityDeviation(s.Name, l), nil
	}
	return f
}

// Register adds a provider kind. Existing kinds cannot be replaced.
func (f *Factory) Register(kind string, ctor Constructor) error {
	if _, exists := f.ctors[kind]; exists {
		return fmt.Errorf("provider kind %q already registered", kind)
	}
	f.ctors[kind] = ctor
	return nil
}

// Kinds returns the known provider kinds, sorted.
func (f *Factory) Kinds() []string {
	kinds := make([]string, 0, len(f.ctors))
	for k := range f.ctors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build creates the provider described by spec
func (f *Factory) Build(spec contracts.FactorSpec) (contracts.SignalProvider, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("factor spec has no name")
	}
	ctor, ok := f.ctors[spec.Provider]
	if !ok {
		return nil, fmt.Errorf("factor %s: unknown provider %q (known: %v)", spec.Name, spec.Provider, f.Kinds())
	}
	p, err := ctor(spec, f.logger)
	if err != nil {
		return nil, fmt.Errorf("factor %s: %w", spec.Name, err)
	}
	return p, nil
}

// BuildAll builds a registry from a list of specs
func (f *Factory) BuildAll(specs []contracts.FactorSpec) (*Registry, error) {
	providers := make([]contracts.SignalProvider, 0, len(specs))
	for _, s := range specs {
		p, err := f.Build(s)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewRegistry(providers...)
}

func intParam(spec contracts.FactorSpec, key string, def int) (int, error) {
	v, ok := spec.Params[key]
	if !ok {
		return def, nil
	}
	if v != math.Trunc(v) || v < 1 {
		return 0, fmt.Errorf("param %s must be a positive integer, got %v", key, v)
	}
	return int(v), nil
}
