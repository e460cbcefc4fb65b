// Package web holds the pages served by the control server, compiled into
// the binary so the server runs from a single file.
package web

import _ "embed"

//go:embed control.html
var Control []byte

//go:embed viewer.html
var Viewer []byte

//go:embed placeholder.html
var Placeholder []byte
