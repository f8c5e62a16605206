package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalogs is the immutable game content the simulation reads: per-shape
// properties and weapon fire types.
type Catalogs struct {
	Shapes    ShapeCatalog
	FireTypes FireTypeCatalog
}

type ShapeCatalog struct {
	ByShape map[uint32]*ShapeInfo
	Shapes  []uint32
	Digest  string
}

type FireTypeCatalog struct {
	ByType map[uint16]*FireType
	Digest string
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadShapes(filepath.Join(configDir, "shapes.json"), &c.Shapes); err != nil {
		return nil, err
	}
	if err := loadFireTypes(filepath.Join(configDir, "firetypes.json"), &c.FireTypes); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Shape returns the info for shape, or a shared zero-footprint entry for
// shapes the catalog does not know.
func (c *ShapeCatalog) Shape(shape uint32) *ShapeInfo {
	if si, ok := c.ByShape[shape]; ok {
		return si
	}
	return &ShapeInfo{Shape: shape}
}

func (c *ShapeCatalog) Has(shape uint32) bool {
	_, ok := c.ByShape[shape]
	return ok
}

// Add registers or replaces a shape. Intended for tests and tools.
func (c *ShapeCatalog) Add(si ShapeInfo) {
	if c.ByShape == nil {
		c.ByShape = map[uint32]*ShapeInfo{}
	}
	if _, ok := c.ByShape[si.Shape]; !ok {
		c.Shapes = append(c.Shapes, si.Shape)
		sort.Slice(c.Shapes, func(i, j int) bool { return c.Shapes[i] < c.Shapes[j] })
	}
	si.compile()
	c.ByShape[si.Shape] = &si
}

func (c *FireTypeCatalog) FireType(typeNo uint16) *FireType {
	if c == nil {
		return nil
	}
	return c.ByType[typeNo]
}

func (c *FireTypeCatalog) Add(ft FireType) {
	if c.ByType == nil {
		c.ByType = map[uint16]*FireType{}
	}
	c.ByType[ft.TypeNo] = &ft
}

func loadShapes(path string, out *ShapeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ShapeInfo
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("shapes.json: %w", err)
	}
	out.ByShape = make(map[uint32]*ShapeInfo, len(defs))
	out.Shapes = out.Shapes[:0]
	for i := range defs {
		d := defs[i]
		if _, dup := out.ByShape[d.Shape]; dup {
			return fmt.Errorf("shapes.json: duplicate shape %d", d.Shape)
		}
		if err := d.compile(); err != nil {
			return fmt.Errorf("shapes.json: shape %d: %w", d.Shape, err)
		}
		out.ByShape[d.Shape] = &d
		out.Shapes = append(out.Shapes, d.Shape)
	}
	sort.Slice(out.Shapes, func(i, j int) bool { return out.Shapes[i] < out.Shapes[j] })
	return nil
}

func loadFireTypes(path string, out *FireTypeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []FireType
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("firetypes.json: %w", err)
	}
	out.ByType = make(map[uint16]*FireType, len(defs))
	for i := range defs {
		d := defs[i]
		if d.TypeNo == 0 {
			return fmt.Errorf("firetypes.json: type 0 is reserved")
		}
		if _, dup := out.ByType[d.TypeNo]; dup {
			return fmt.Errorf("firetypes.json: duplicate type %d", d.TypeNo)
		}
		if d.MaxDamage < d.MinDamage {
			return fmt.Errorf("firetypes.json: type %d: max_damage < min_damage", d.TypeNo)
		}
		for _, v := range d.Splash {
			for _, fr := range v.Frames {
				if fr[1] < fr[0] {
					return fmt.Errorf("firetypes.json: type %d: bad frame range %v", d.TypeNo, fr)
				}
			}
		}
		out.ByType[d.TypeNo] = &d
	}
	return nil
}

func parseFlags(names []string, table map[string]uint32) (uint32, error) {
	var v uint32
	for _, n := range names {
		bit, ok := table[strings.ToUpper(n)]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", n)
		}
		v |= bit
	}
	return v, nil
}
