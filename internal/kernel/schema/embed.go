package schema

import _ "embed"

//go:embed cue/artifacts.cue
var artifactsCUE []byte
