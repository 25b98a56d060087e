package environment

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-vignette/common"
	"github.com/Carmen-Shannon/oxy-vignette/engine/light"
	"github.com/Carmen-Shannon/oxy-vignette/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the set of known locations.
type Catalog struct {
	// Aliases maps alternative names to location names. Keys are matched case-insensitively.
	Aliases map[string]string `yaml:"aliases"`

	// Locations are the known locations.
	Locations []Location `yaml:"locations"`
}

// Location describes the lights, props and background of one environment.
type Location struct {
	Name       string       `yaml:"name"`
	Background string       `yaml:"background"`
	Ambient    *AmbientSpec `yaml:"ambient"`
	Lights     []LightSpec  `yaml:"lights"`
	Props      []PropSpec   `yaml:"props"`
}

// AmbientSpec is a location's fill light.
type AmbientSpec struct {
	Color     string  `yaml:"color"`
	Intensity float32 `yaml:"intensity"`
}

// LightSpec is one positioned light. Spot and directional lights aim at Target,
// which defaults to the origin.
type LightSpec struct {
	Type      string      `yaml:"type"`
	Color     string      `yaml:"color"`
	Intensity float32     `yaml:"intensity"`
	Position  [3]float32  `yaml:"position"`
	Target    *[3]float32 `yaml:"target"`
	Distance  float32     `yaml:"distance"`
	Decay     float32     `yaml:"decay"`
	Angle     float32     `yaml:"angle"`
	Penumbra  float32     `yaml:"penumbra"`
}

// PropSpec is one procedural mesh. Size holds the shape's dimensions:
// box [width, height, depth], cylinder [radiusTop, radiusBottom, height],
// circle [radius] and sphere [radius].
type PropSpec struct {
	Name     string     `yaml:"name"`
	Shape    string     `yaml:"shape"`
	Size     []float32  `yaml:"size"`
	Segments int        `yaml:"segments"`
	Color    string     `yaml:"color"`
	Position [3]float32 `yaml:"position"`
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
})

// DefaultCatalog returns the embedded stock catalog.
func DefaultCatalog() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML catalog.
//
// Parameters:
//   - r: the YAML source
//
// Returns:
//   - *Catalog: the validated catalog
//   - error: error if the YAML is malformed or a location is invalid
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every location's lights and props.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Locations))
	var errs []error
	for _, loc := range c.Locations {
		key := strings.ToLower(loc.Name)
		if loc.Name == "" {
			errs = append(errs, errors.New("location without a name"))
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate location %q", loc.Name))
		}
		seen[key] = true
		if loc.Ambient != nil {
			if _, err := common.ParseHexColor(loc.Ambient.Color); err != nil {
				errs = append(errs, fmt.Errorf("location %q ambient: %w", loc.Name, err))
			}
		}
		for i, l := range loc.Lights {
			if _, err := l.build(); err != nil {
				errs = append(errs, fmt.Errorf("location %q light %d: %w", loc.Name, i, err))
			}
		}
		for _, p := range loc.Props {
			if _, _, err := p.mesh(); err != nil {
				errs = append(errs, fmt.Errorf("location %q prop %q: %w", loc.Name, p.Name, err))
			}
		}
	}
	for alias, target := range c.Aliases {
		if !seen[strings.ToLower(target)] {
			errs = append(errs, fmt.Errorf("alias %q points at unknown location %q", alias, target))
		}
	}
	return errors.Join(errs...)
}

// Lookup finds a location by name or alias, ignoring case and surrounding space.
//
// Parameters:
//   - name: the location name
//
// Returns:
//   - *Location: the location, or nil
//   - bool: false if the name is unknown
func (c *Catalog) Lookup(name string) (*Location, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, false
	}
	for alias, target := range c.Aliases {
		if strings.ToLower(alias) == key {
			key = strings.ToLower(target)
			break
		}
	}
	for i := range c.Locations {
		if strings.ToLower(c.Locations[i].Name) == key {
			return &c.Locations[i], true
		}
	}
	return nil, false
}

// Names returns the location names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Locations))
	for i, loc := range c.Locations {
		out[i] = loc.Name
	}
	return out
}

// build creates the light this entry describes.
func (s LightSpec) build() (light.Light, error) {
	color, err := common.ParseHexColor(s.Color)
	if err != nil {
		return nil, err
	}
	opts := []light.LightBuilderOption{
		light.WithColor(color),
		light.WithIntensity(s.Intensity),
		light.WithPosition(s.Position[0], s.Position[1], s.Position[2]),
	}
	target := [3]float32{}
	if s.Target != nil {
		target = *s.Target
	}

	var kind light.LightType
	switch strings.ToLower(s.Type) {
	case "point":
		kind = light.LightTypePoint
	case "spot":
		kind = light.LightTypeSpot
		opts = append(opts,
			light.WithTarget(target[0], target[1], target[2]),
			light.WithSpotAngle(mgl32.DegToRad(s.Angle), s.Penumbra),
		)
	case "directional":
		kind = light.LightTypeDirectional
		opts = append(opts, light.WithTarget(target[0], target[1], target[2]))
	case "ambient":
		kind = light.LightTypeAmbient
	default:
		return nil, fmt.Errorf("unknown light type %q", s.Type)
	}
	if s.Distance > 0 {
		opts = append(opts, light.WithRange(s.Distance))
	}
	if s.Decay > 0 {
		opts = append(opts, light.WithDecay(s.Decay))
	}
	return light.NewLight(kind, opts...), nil
}

// mesh generates the prop's geometry and parses its color.
func (p PropSpec) mesh() (model.MeshData, common.Color, error) {
	color, err := common.ParseHexColor(p.Color)
	if err != nil {
		return model.MeshData{}, common.Color{}, err
	}
	segments := common.Coalesce(p.Segments, 32)
	dim := func(n int) error {
		if len(p.Size) != n {
			return fmt.Errorf("%s needs %d sizes, got %d", p.Shape, n, len(p.Size))
		}
		for _, v := range p.Size {
			if v < 0 {
				return fmt.Errorf("%s size %v is negative", p.Shape, v)
			}
		}
		return nil
	}

	var mesh model.MeshData
	switch strings.ToLower(p.Shape) {
	case "box":
		if err := dim(3); err != nil {
			return mesh, color, err
		}
		mesh = model.NewBox(p.Size[0], p.Size[1], p.Size[2])
	case "cylinder":
		if err := dim(3); err != nil {
			return mesh, color, err
		}
		mesh = model.NewCylinder(p.Size[0], p.Size[1], p.Size[2], segments)
	case "circle":
		if err := dim(1); err != nil {
			return mesh, color, err
		}
		mesh = model.NewCircle(p.Size[0], segments)
	case "sphere":
		if err := dim(1); err != nil {
			return mesh, color, err
		}
		mesh = model.NewSphere(p.Size[0], segments, segments)
	default:
		return mesh, color, fmt.Errorf("unknown shape %q", p.Shape)
	}
	mesh.Name = p.Name
	return mesh, color, nil
}
