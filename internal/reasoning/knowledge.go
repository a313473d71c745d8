package reasoning

import _ "embed"

// Knowledge is the static domain primer sent with every deep audit.
//
//go:embed knowledge.md
var Knowledge string
