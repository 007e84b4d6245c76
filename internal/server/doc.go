// Package server exposes the validator over HTTP.
//
// # Endpoints
//
//   - GET  /healthz - liveness probe
//   - GET  /metrics - Prometheus metrics (path is configurable)
//   - GET  /api/v1/apis - the registered suites
//   - GET  /api/v1/parameters?api=&endpoint=&version= - parameters a run accepts
//   - POST /api/v1/validate - runs one validation and returns its report
//   - GET  /api/v1/reports[?api=] - stored reports
//   - GET  /api/v1/reports/{id} - one stored report
//
// The validate endpoint accepts a JSON document or a form body:
//
//	{"url": "https://ewp.example.org/inst", "api": "institutions", "version": "2.1.0",
//	 "parameters": {"hei_id": "uw.edu.pl"}}
//
//	url=https://ewp.example.org/inst&api=institutions&version=2.1.0&param=hei_id=uw.edu.pl
//
// Errors are answered with RFC 7807 problem documents.
package server
