// Package web embeds the browser form's templates and static assets.
package web

import "embed"

// TemplatesFS holds the page template and its HTMX fragment.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
