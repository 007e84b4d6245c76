// Package verifier holds the assertions run over response bodies.
//
// A Document is built from the (decoded) body with Parse. XML bodies are
// queried with github.com/antchfx/xmlquery by local element name, JSON
// bodies with github.com/tidwall/gjson. Verifiers come from a Factory bound
// to a selector path:
//
//	ids := verifier.NewFactory("hei", "hei-id")
//	err := ids.ContainExactly("uw.edu.pl").Verify(doc)
//	err = ids.BeEmpty().WithSeverity(report.StatusWarning).Verify(doc)
//
// A failed check returns *Result carrying its severity.
package verifier
