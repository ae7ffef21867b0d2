package web

import _ "embed"

// indexHTML is the single-page dashboard. Charts are drawn client-side from the view tables.
//
//go:embed static/index.html
var indexHTML string
