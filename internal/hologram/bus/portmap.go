package bus

import (
	"strconv"

	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Port is one labelled bus position.
type Port struct {
	Field string // model, anim, ctrl or param
	Label string // bit index or parameter name
	Pos   world.BlockPos
}

var paramNames = [4]string{"scale", "offX", "offY", "offZ"}

// PortMap labels every edge port with the field and bit it feeds, followed
// by the four parameter ports. Ports beyond the control run are unused and
// omitted.
func PortMap(c structure.Cuboid) []Port {
	ports := EdgePorts(c.Min, c.Max)
	var out []Port

	i := 0
	for _, field := range []struct {
		name string
		bits int
	}{{"model", ModelBits}, {"anim", AnimBits}, {"ctrl", CtrlBits}} {
		remaining := len(ports) - i
		n := min(field.bits, remaining)
		if remaining == 1 {
			out = append(out, Port{Field: field.name, Label: "analog", Pos: ports[i]})
			i++
			continue
		}
		for b := range n {
			out = append(out, Port{Field: field.name, Label: bitLabel(b), Pos: ports[i+b]})
		}
		i += max(n, 0)
	}

	for k, p := range ParamPorts(c) {
		out = append(out, Port{Field: "param", Label: paramNames[k], Pos: p})
	}
	return out
}

func bitLabel(b int) string {
	return "bit" + strconv.Itoa(b)
}
