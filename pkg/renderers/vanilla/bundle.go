package vanilla

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl assets/*
var bundle embed.FS

// StylesheetName is the stylesheet served from AssetsFS. The form markup
// only uses ormform-* classes defined there.
const StylesheetName = "ormform.css"

// TemplatesFS returns the template bundle rooted so that form.tmpl lives at
// templates/form.tmpl.
func TemplatesFS() fs.FS { return bundle }

// AssetsFS returns the static files, rooted at the assets directory.
func AssetsFS() fs.FS {
	assets, err := fs.Sub(bundle, "assets")
	if err != nil {
		panic(err)
	}
	return assets
}
