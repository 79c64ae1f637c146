package servactory

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/roach88/servactory/internal/config"
	"github.com/roach88/servactory/internal/engine"
	"github.com/roach88/servactory/internal/messages"
	"github.com/roach88/servactory/internal/option"
	"github.com/roach88/servactory/internal/validation"
)

// Config is the process-wide framework configuration.
type Config = config.Config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a configuration file plus SERVACTORY_* overrides.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Catalog renders the default error messages.
type Catalog = messages.Catalog

// NewCatalog builds a message catalog for a key root and locale. Use
// Catalog.Set to override templates before passing it to WithCatalog.
func NewCatalog(root string, tag language.Tag) (*Catalog, error) { return messages.New(root, tag) }

// Framework carries the configuration every service is built with. It is
// created once at process start and is read-only afterwards.
type Framework struct {
	cfg        Config
	registry   *option.Registry
	catalog    *messages.Catalog
	validator  *validation.Validator
	logger     *zap.Logger
	ids        engine.IDGenerator
	mapper     func(error) error
	extensions []Extension
	observers  []Observer
}

// Option configures a Framework.
type Option func(*Framework)

// WithConfig sets the configuration. The default is DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(f *Framework) { f.cfg = cfg }
}

// WithRegistry sets the option registry. The default is DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(f *Framework) { f.registry = r }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(f *Framework) { f.logger = l }
}

// WithCatalog replaces the message catalog built from the configuration.
func WithCatalog(c *Catalog) Option {
	return func(f *Framework) { f.catalog = c }
}

// WithIDGenerator sets the invocation ID source. The default is UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(f *Framework) { f.ids = g }
}

// WithErrorMapper maps every error returned by CallStrict, e.g. to the
// host application's own error classes.
func WithErrorMapper(fn func(error) error) Option {
	return func(f *Framework) { f.mapper = fn }
}

// WithExtensions adds extensions to every service. They wrap outside the
// extensions a service declares itself.
func WithExtensions(exts ...Extension) Option {
	return func(f *Framework) { f.extensions = append(f.extensions, exts...) }
}

// WithObservers adds observers to every service. They wrap outside the
// observers a service declares itself.
func WithObservers(obs ...Observer) Option {
	return func(f *Framework) { f.observers = append(f.observers, obs...) }
}

// New creates a framework.
func New(opts ...Option) (*Framework, error) {
	f := &Framework{cfg: config.Default()}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.cfg.Validate(); err != nil {
		return nil, err
	}

	if f.registry == nil {
		f.registry = option.Default()
	}
	if f.catalog == nil {
		c, err := messages.New(f.cfg.MessageRoot, f.cfg.Language())
		if err != nil {
			return nil, fmt.Errorf("build message catalog: %w", err)
		}
		f.catalog = c
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	if f.ids == nil {
		f.ids = engine.UUIDv7Generator{}
	}
	if f.mapper == nil {
		f.mapper = func(err error) error { return err }
	}
	f.validator = validation.New(f.registry, f.catalog)
	return f, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *Framework {
	f, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Config returns the configuration.
func (f *Framework) Config() Config { return f.cfg }

// Registry returns the option registry.
func (f *Framework) Registry() *Registry { return f.registry }

// Catalog returns the message catalog.
func (f *Framework) Catalog() *Catalog { return f.catalog }

// Logger returns the logger.
func (f *Framework) Logger() *zap.Logger { return f.logger }

// Define starts the declaration of a service.
func (f *Framework) Define(name string) *Builder {
	return newBuilder(f, name)
}
