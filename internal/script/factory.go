package script

import (
	"github.com/madappgang/metav/internal/ast"
	"github.com/madappgang/metav/internal/position"
)

// DefaultFactory is the stock Factory wired into every Capabilities value
// the driver builds. Every node it returns carries a zero-valued,
// non-file-rooted Range: legal because such nodes are only ever printed
// as an Insert payload (ast.Print never consults Range) and never handed
// to ast.FileSpan directly.
type DefaultFactory struct{}

func (DefaultFactory) NewWire(names []string) ast.Node {
	return ast.NewWire(position.Range{}, nil, nil, idNodes(names))
}

func (DefaultFactory) NewReg(names []string) ast.Node {
	return ast.NewReg(position.Range{}, nil, nil, idNodes(names))
}

func (DefaultFactory) NewAssign(lhs, rhs string) ast.Node {
	return ast.NewAssign(position.Range{}, nil, ast.NewId(position.Range{}, lhs), "=", ast.NewId(position.Range{}, rhs), false, true)
}

func (DefaultFactory) NewId(name string) ast.Node {
	return ast.NewId(position.Range{}, name)
}

func idNodes(names []string) []ast.Node {
	out := make([]ast.Node, len(names))
	for i, n := range names {
		out[i] = ast.NewId(position.Range{}, n)
	}
	return out
}
