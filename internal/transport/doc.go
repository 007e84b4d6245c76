// Package transport builds, secures and sends the requests of a validation
// run, and authenticates and decodes the responses.
//
// A request goes through three stages:
//
//	req := transport.Build(combination, params)        // method, URL, body
//	err := transport.Apply(req, transport.Security{..}) // headers, signature, client cert
//	resp, err := client.Send(ctx, req)                  // bounded by the timeout
//
// The response is then checked by the ResponseAuthorizer matching the
// server authentication method and unwrapped by Decoder. HTTP Signatures
// use github.com/go-fed/httpsig with rsa-sha256; key ids are SHA-256
// fingerprints of the public key.
package transport
