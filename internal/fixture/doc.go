// Package fixture discovers the live values validation steps need, such as
// an hei_id served by the target or an ounit_id that belongs to it.
//
// Parameters form a dependency graph (see internal/dependency). NewPlan
// checks the table and the user overrides, and fixes the resolution order.
// ResolveOne then resolves one parameter at a time so that every resolution
// can be reported as its own setup step:
//
//	plan, err := fixture.NewPlan(params, overrides)
//	vals := fixture.NewValues()
//	for _, p := range plan.Order {
//		err := plan.ResolveOne(ctx, p, env, vals)
//		...
//	}
//
// Overridden values are used verbatim. Discovered values keep their full
// candidate list so that later strategies can narrow an earlier choice.
package fixture
