package shaders

import (
	_ "embed"
)

//go:embed blit.wgsl
var BlitWGSL string

//go:embed solid.wgsl
var SolidWGSL string

//go:embed lightfield.wgsl
var LightfieldWGSL string

//go:embed terrain.wgsl
var TerrainWGSL string
