// Package dashboard embeds the pump status indicator page.
//
// The page subscribes to /api/sse and repaints a single indicator per
// endpoint from each snapshot it receives.
package dashboard

import "embed"

// Assets holds the indicator page:
//
//	assets/
//	  index.html    - indicator page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
