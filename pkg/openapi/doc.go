// Package openapi exports described forms as OpenAPI 3 component schemas and
// validates processed form data against them. The kin-openapi structs are
// returned directly so callers can merge them into larger documents.
package openapi
