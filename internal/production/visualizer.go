package production

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/comalice/rtdevs"
)

// ExportDOT generates Graphviz DOT source for a model tree. Coupled models
// become clusters holding their ports and children, atomic models become
// boxes and couplings become edges labelled with the ports they connect.
func ExportDOT(root rtdevs.Model) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", root.Base().Name())
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)
	var edges []string
	renderModel(&buf, root, "", "  ", &edges)
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// renderModel writes the nodes of m and collects the edges of its couplings.
func renderModel(buf *bytes.Buffer, m rtdevs.Model, prefix, indent string, edges *[]string) {
	path := joinPath(prefix, m.Base().Name())
	c, ok := m.(rtdevs.Composite)
	if !ok {
		fmt.Fprintf(buf, "%s%q [label=%q];\n", indent, path, m.Base().Name())
		return
	}
	cm := c.Composite()
	fmt.Fprintf(buf, "%ssubgraph %q {\n", indent, "cluster_"+path)
	fmt.Fprintf(buf, "%s  label=%q;\n", indent, cm.Name())
	for _, p := range cm.InPorts() {
		fmt.Fprintf(buf, "%s  %q [label=%q shape=ellipse];\n", indent, path+"."+p.Name(), p.Name())
	}
	for _, p := range cm.OutPorts() {
		fmt.Fprintf(buf, "%s  %q [label=%q shape=ellipse];\n", indent, path+"."+p.Name(), p.Name())
	}
	for _, child := range cm.Children() {
		renderModel(buf, child, path, indent+"  ", edges)
	}
	fmt.Fprintf(buf, "%s}\n", indent)

	for _, cp := range cm.Couplings() {
		from := endpointNode(cm, path, cp.From)
		to := endpointNode(cm, path, cp.To)
		*edges = append(*edges, fmt.Sprintf("  %q -> %q [label=%q];\n", from, to, cp.Src.Name()+" -> "+cp.Dst.Name()))
	}
}

// endpointNode returns the node a coupling endpoint is drawn from: the port
// node of a coupled model, or the box of an atomic child.
func endpointNode(c *rtdevs.Coupled, path, endpoint string) string {
	idx := strings.LastIndex(endpoint, ".")
	if idx == -1 {
		return path + "." + endpoint
	}
	owner := endpoint[:idx]
	child, ok := c.Child(owner)
	if !ok {
		return path + "." + endpoint
	}
	if _, composite := child.(rtdevs.Composite); composite {
		return path + "." + endpoint
	}
	return path + "." + owner
}
