package i18n

import "embed"

// EmbeddedLocales holds locales/*.json compiled into the binary.
//
//go:embed locales/*.json
var EmbeddedLocales embed.FS
