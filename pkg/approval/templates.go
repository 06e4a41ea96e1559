package approval

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/agroline/fieldops/pkg/hierarchy"
)

// Templates maps each workflow type to its ordered chain of approver roles.
// Safe for concurrent read while a background Watch reloads it.
type Templates struct {
	mu     sync.RWMutex
	chains map[Type][]hierarchy.Role
}

// templateFile is the YAML shape of a chain template config.
//
//	chains:
//	  monthly_plan: [TSM, RBH, ZBH]
//	  budget_approval: [RBH, ZBH, VP]
type templateFile struct {
	Chains map[string][]string `yaml:"chains"`
}

// DefaultTemplates returns the built-in chain per workflow type.
func DefaultTemplates() *Templates {
	return &Templates{
		chains: map[Type][]hierarchy.Role{
			TypeMonthlyPlan:        {hierarchy.RoleTSM, hierarchy.RoleRBH, hierarchy.RoleZBH},
			TypeTravelClaim:        {hierarchy.RoleTSM, hierarchy.RoleRBH},
			TypeActivityClaim:      {hierarchy.RoleTSM, hierarchy.RoleRBH},
			TypeBudgetApproval:     {hierarchy.RoleRBH, hierarchy.RoleZBH, hierarchy.RoleVP},
			TypeStockVerification:  {hierarchy.RoleTSM, hierarchy.RoleRBH},
			TypeStockRectification: {hierarchy.RoleTSM, hierarchy.RoleRBH},
			TypeTargetRevision:     {hierarchy.RoleZBH, hierarchy.RoleVP, hierarchy.RoleMD},
		},
	}
}

// LoadTemplates reads chain templates from a YAML file, starting from the
// defaults and overriding any type the file names.
func LoadTemplates(path string) (*Templates, error) {
	t := DefaultTemplates()
	if err := t.loadFile(path); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Templates) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read chain templates: %w", err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse chain templates: %w", err)
	}

	parsed := make(map[Type][]hierarchy.Role, len(file.Chains))
	for name, roles := range file.Chains {
		typ := Type(name)
		if !ValidType(typ) {
			return fmt.Errorf("%w: %q", ErrUnknownType, name)
		}
		if len(roles) == 0 {
			return fmt.Errorf("chain for %s is empty", name)
		}
		chain := make([]hierarchy.Role, 0, len(roles))
		for _, r := range roles {
			role := hierarchy.Role(r)
			if !hierarchy.KnownRole(role) {
				return fmt.Errorf("chain for %s names unknown role %q", name, r)
			}
			chain = append(chain, role)
		}
		parsed[typ] = chain
	}

	t.mu.Lock()
	for typ, chain := range parsed {
		t.chains[typ] = chain
	}
	t.mu.Unlock()
	return nil
}

// ChainFor returns the approver role sequence for a workflow type.
func (t *Templates) ChainFor(typ Type) ([]hierarchy.Role, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	chain, ok := t.chains[typ]
	if !ok {
		return nil, ErrNoTemplate
	}
	out := make([]hierarchy.Role, len(chain))
	copy(out, chain)
	return out, nil
}

// Watch reloads the template file whenever it is rewritten. It returns a stop
// function; reload failures are logged and the previous templates stay in
// effect.
func (t *Templates) Watch(path string, log *logrus.Logger) (func(), error) {
	if log == nil {
		log = logrus.New()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := t.loadFile(path); err != nil {
					log.WithError(err).Warn("Chain template reload failed; keeping previous templates")
					continue
				}
				log.WithField("path", path).Info("Chain templates reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("Template watcher error")
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
