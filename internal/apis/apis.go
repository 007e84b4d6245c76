// Package apis holds the validation tables of the supported EWP APIs.
package apis

import (
	"strings"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
)

// All returns every shipped API in registration order.
func All() []suite.API {
	return []suite.API{
		Institutions(),
		OrganizationalUnits(),
		IIAsIndex(),
		IIAsGet(),
	}
}

// Registry returns a registry of All.
func Registry() *suite.Registry {
	return suite.NewRegistry(All()...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func list(vs []string) string {
	return "[" + strings.Join(vs, ", ") + "]"
}
