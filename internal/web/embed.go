// Package web carries the embedded landing page served to browsers.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
