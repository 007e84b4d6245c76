package fixture

import (
	"context"
	"fmt"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/dependency"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// Plan is the checked resolution order of a parameter table.
type Plan struct {
	Order     []Parameter
	overrides map[string]string
}

// NewPlan validates the parameter table and the overrides. It never touches
// the network; every error it returns is a configuration error.
func NewPlan(params []Parameter, overrides map[string]string) (*Plan, error) {
	byName := make(map[string]Parameter, len(params))
	g := dependency.New()
	for _, p := range params {
		if p.Name == "" {
			return nil, &DefinitionError{Parameter: "(unnamed)", Reason: "missing name"}
		}
		if _, dup := byName[p.Name]; dup {
			return nil, &DefinitionError{Parameter: p.Name, Reason: "declared twice"}
		}
		byName[p.Name] = p
		deps := make([]dependency.NodeID, len(p.DependsOn))
		for i, d := range p.DependsOn {
			deps[i] = dependency.NodeID(d)
		}
		g.AddNode(dependency.Node{ID: dependency.NodeID(p.Name), DependsOn: deps})
	}
	for _, p := range params {
		for _, d := range p.DependsOn {
			if _, ok := byName[d]; !ok {
				return nil, &DefinitionError{Parameter: p.Name, Reason: fmt.Sprintf("depends on undeclared parameter %s", d)}
			}
		}
		for _, b := range p.BlockedBy {
			if _, ok := byName[b]; !ok {
				return nil, &DefinitionError{Parameter: p.Name, Reason: fmt.Sprintf("blocked by undeclared parameter %s", b)}
			}
		}
	}

	ids, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	for _, name := range sortedKeys(overrides) {
		p, ok := byName[name]
		if !ok {
			return nil, &OverrideError{Parameter: name, Reason: "not a parameter of this API"}
		}
		var missing []string
		for _, d := range p.DependsOn {
			if _, ok := overrides[d]; !ok {
				missing = append(missing, d)
			}
		}
		if len(missing) > 0 {
			return nil, &OverrideError{Parameter: name, Reason: "requires " + joinQuoted(missing) + " to be provided as well"}
		}
		for _, b := range p.BlockedBy {
			if _, ok := overrides[b]; ok {
				return nil, &OverrideError{Parameter: name, Reason: "cannot be provided together with '" + b + "'"}
			}
		}
	}

	plan := &Plan{overrides: make(map[string]string, len(overrides))}
	for k, v := range overrides {
		plan.overrides[k] = v
	}
	for _, id := range ids {
		plan.Order = append(plan.Order, byName[string(id)])
	}
	return plan, nil
}

// Overridden reports whether the user provided name.
func (p *Plan) Overridden(name string) bool {
	_, ok := p.overrides[name]
	return ok
}

// ResolveOne resolves a single parameter into vals. Its dependencies must
// have been resolved already.
func (p *Plan) ResolveOne(ctx context.Context, param Parameter, env Env, vals *Values) error {
	if v, ok := p.overrides[param.Name]; ok {
		vals.set(param.Name, v, []string{v}, true)
		logging.Debug("Fixture", "Using provided %s=%s", param.Name, v)
		return nil
	}
	if param.Strategy == nil {
		if param.Optional {
			return nil
		}
		return &UnresolvedError{Parameter: param.Name, Message: param.Missing}
	}
	found, err := param.Strategy(ctx, env, vals)
	if err != nil {
		return fmt.Errorf("failed to discover %s: %w", param.Name, err)
	}
	if len(found) == 0 {
		if param.Optional {
			logging.Debug("Fixture", "Optional parameter %s not found", param.Name)
			return nil
		}
		return &UnresolvedError{Parameter: param.Name, Message: param.Missing}
	}
	vals.set(param.Name, found[0], found, false)
	logging.Debug("Fixture", "Discovered %s=%s (%d candidates)", param.Name, found[0], len(found))
	return nil
}

// Resolve runs every parameter of a plan in order.
func (p *Plan) Resolve(ctx context.Context, env Env) (*Values, error) {
	vals := NewValues()
	for _, param := range p.Order {
		if err := ctx.Err(); err != nil {
			return vals, err
		}
		if err := p.ResolveOne(ctx, param, env, vals); err != nil {
			return vals, err
		}
	}
	return vals, nil
}

// Resolve plans and resolves in one go.
func Resolve(ctx context.Context, params []Parameter, overrides map[string]string, env Env) (*Values, error) {
	plan, err := NewPlan(params, overrides)
	if err != nil {
		return nil, err
	}
	return plan.Resolve(ctx, env)
}
