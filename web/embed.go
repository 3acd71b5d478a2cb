package web

import "embed"

// PagesFS embeds the HTML pages served at /, /login.html and /register.html.
//
//go:embed pages/*.html
var PagesFS embed.FS

// StaticFS embeds static assets (css/js).
//
//go:embed static/*
var StaticFS embed.FS
