// Package environment models the host GIS project state and renders it as a
// text snapshot for prompts. The host pushes its current project over the
// gateway; a snapshot can also be loaded from a JSON file for offline use.
package environment

import (
	"fmt"
	"strings"
	"sync"
)

// Layer type names as they appear in snapshots.
const (
	LayerVector  = "vector"
	LayerRaster  = "raster"
	LayerUnknown = "unknown"
)

// Band describes one raster band.
type Band struct {
	Number   int    `json:"number"`
	DataType string `json:"dataType"`
}

// Extent is a bounding box in layer units: xmin, ymin, xmax, ymax.
type Extent struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Layer is one map layer of the host project.
type Layer struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"` // "vector" | "raster" | "unknown"
	EPSG         string  `json:"epsg,omitempty"`
	Extent       *Extent `json:"extent,omitempty"`
	GeometryType string  `json:"geometryType,omitempty"` // vector layers
	ResolutionX  float64 `json:"resolutionX,omitempty"`  // raster layers
	ResolutionY  float64 `json:"resolutionY,omitempty"`
	Bands        []Band  `json:"bands,omitempty"`
}

// Project is a snapshot of the host GIS project.
type Project struct {
	Title  string  `json:"title,omitempty"`
	Layers []Layer `json:"layers"`
}

// Render formats the project as the plain-text snapshot handed to the model.
func (p Project) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total number of layers: %d\n", len(p.Layers))

	for _, layer := range p.Layers {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Layer Name: %s;\n", layer.Name)
		fmt.Fprintf(&b, "    Layer Type: %s;\n", layer.Type)

		switch layer.Type {
		case LayerVector:
			renderCommon(&b, layer)
			fmt.Fprintf(&b, "    Geometry Type: %s;\n", layer.GeometryType)

		case LayerRaster:
			renderCommon(&b, layer)
			fmt.Fprintf(&b, "    Resolution: %g, %g;\n", layer.ResolutionX, layer.ResolutionY)
			b.WriteString("    Attributes:\n")
			for _, band := range layer.Bands {
				fmt.Fprintf(&b, "        Band Number: %d, Data Type: %s;\n", band.Number, band.DataType)
			}

		default:
			fmt.Fprintf(&b, "    Type: Unknown;\n")
		}
	}

	return b.String()
}

func renderCommon(b *strings.Builder, layer Layer) {
	if layer.EPSG != "" {
		fmt.Fprintf(b, "    EPSG Code: %s;\n", layer.EPSG)
	}
	if layer.Extent != nil {
		fmt.Fprintf(b, "    Extent: %g, %g, %g, %g;\n",
			layer.Extent.XMin, layer.Extent.YMin, layer.Extent.XMax, layer.Extent.YMax)
	}
}

// Provider exposes the current project snapshot.
type Provider interface {
	Snapshot() Project
}

// MemoryProvider holds the latest project pushed by the host. Safe for
// concurrent use.
type MemoryProvider struct {
	mu      sync.RWMutex
	project Project
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Snapshot returns the current project.
func (p *MemoryProvider) Snapshot() Project {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.project
}

// Set replaces the current project.
func (p *MemoryProvider) Set(project Project) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.project = project
}
