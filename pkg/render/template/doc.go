// Package template defines the template engine contract the HTML renderer
// depends on. The gotemplate subpackage provides the pongo2 implementation.
package template
