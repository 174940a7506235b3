package mapfile

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/samber/lo"
)

// Write emits m in the standard Quake format. Properties are written with
// "classname" first and the rest sorted by key.
func Write(w io.Writer, m *Map) error {
	bw := bufio.NewWriter(w)
	for i, e := range m.Entities {
		fmt.Fprintf(bw, "// entity %d\n{\n", i)
		for _, k := range propertyOrder(e.Properties) {
			fmt.Fprintf(bw, "\"%s\" \"%s\"\n", k, e.Properties[k])
		}
		for j, b := range e.Brushes {
			fmt.Fprintf(bw, "// brush %d\n{\n", j)
			for _, f := range b.Faces {
				for _, pt := range f.Points {
					fmt.Fprintf(bw, "( %d %d %d ) ", pt[0], pt[1], pt[2])
				}
				tr := f.Transform
				fmt.Fprintf(bw, "%s %d %d %d %s %s\n",
					textureToken(f.Texture), tr.Offset[0], tr.Offset[1], tr.Rotation,
					formatFloat(tr.Scale[0]), formatFloat(tr.Scale[1]))
			}
			bw.WriteString("}\n")
		}
		bw.WriteString("}\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("mapfile: write: %w", err)
	}
	return nil
}

func propertyOrder(props map[string]string) []string {
	keys := lo.Filter(lo.Keys(props), func(k string, _ int) bool {
		return k != KeyClassName
	})
	slices.Sort(keys)
	if _, ok := props[KeyClassName]; ok {
		keys = append([]string{KeyClassName}, keys...)
	}
	return keys
}

// textureToken returns name as a single token. Empty names are written as
// an empty quoted string so the face still parses.
func textureToken(name string) string {
	if name == "" {
		return `""`
	}
	return name
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
