// Package security models the EWP security methods and enumerates the
// combinations an endpoint must be validated with.
//
// A Descriptor names one method per kind (client authentication, server
// authentication, request encryption, response encryption) and prints as a
// four-letter code such as "HTTT". A Combination adds the HTTP method and
// endpoint and prints as a five-letter code such as "PHTTT".
//
// ParseSettings reads the http-security section of a catalogue entry,
// CollectMethods turns it into testable method lists plus recommendations,
// and Generate crosses the lists into sorted combinations.
package security
