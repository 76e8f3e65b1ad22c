package sync

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Engine drives delta pulls and mutation pushes for every registered
// entity type. It owns no storage: adapters persist entities, the ledger
// detects replays, and the runner brackets an entity write plus its
// ledger entry into one transaction.
type Engine struct {
	registry     *Registry
	ledger       Ledger
	runner       TxRunner
	locks        *KeyedMutex
	validate     *validator.Validate
	recentWindow time.Duration
	now          func() time.Time
}

// NewEngine wires the engine. recentWindow bounds the "recent" pull
// scope; zero disables the bound and recent degrades to all.
func NewEngine(registry *Registry, ledger Ledger, runner TxRunner, recentWindow time.Duration) *Engine {
	v := validator.New()
	// Report violations under wire names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Engine{
		registry:     registry,
		ledger:       ledger,
		runner:       runner,
		locks:        NewKeyedMutex(256),
		validate:     v,
		recentWindow: recentWindow,
		now:          time.Now,
	}
}

// Types lists the entity types the engine can serve.
func (e *Engine) Types() []string {
	return e.registry.Types()
}

// Adapter returns the registered adapter for an entity type, for callers
// outside the push/pull pipeline that dispatch by type name.
func (e *Engine) Adapter(entityType string) (Adapter, error) {
	return e.registry.Adapter(entityType)
}
