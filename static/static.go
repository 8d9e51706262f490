// Package static embeds the stylesheet and the admin dashboard script so the
// binary serves them under /static/ without a separate asset directory.
package static

import "embed"

// FS holds the files served under /static/.
//
//go:embed site.css admin.js
var FS embed.FS
