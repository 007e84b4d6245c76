// Package suite validates one API endpoint against the EWP conventions.
//
// An API is described declaratively (see internal/apis): its parameters, its
// limits and a battery of cases. A run has two phases. Setup checks the
// credentials, the URL and its catalogue registration, collects the security
// methods and resolves the parameters. Setup steps are critical: a failure
// stops the run. The main phase then sends every case of the battery under
// every security combination the endpoint must support.
//
//	v := suite.NewValidator(apis.Registry(),
//		suite.WithTransport(client),
//		suite.WithCatalogueStore(store),
//		suite.WithCredentials(creds),
//	)
//	rep, err := v.Validate(ctx, suite.Request{
//		URL:     "https://example.org/institutions",
//		API:     "institutions",
//		Version: "2.1.0",
//	})
//
// The run state is filled during setup and frozen before the main phase;
// batteries only read it.
package suite
