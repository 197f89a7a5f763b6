package config

import _ "embed"

// ExampleTOML is the annotated starter configuration written by
// 'giteactl init'.
//
//go:embed setup.toml.example
var ExampleTOML []byte
