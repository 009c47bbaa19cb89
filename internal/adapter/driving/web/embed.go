package web

import "embed"

// StaticFS holds the embedded static assets (CSS, CSRF helper, refresh JS).
//
//go:embed static/*
var StaticFS embed.FS
