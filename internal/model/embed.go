package model

import _ "embed"

//go:embed scripts/detector_worker.py
var embeddedPythonScript string

//go:embed scripts/requirements.txt
var embeddedRequirements string

const defaultRequirements = `transformers>=4.30.0
torch>=2.0.0`
