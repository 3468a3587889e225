// Package web встроенные в бинарник страницы входа, регистрации и панели.
package web

import "embed"

//go:embed static/*.html
var Static embed.FS
