// Package scanner finds import specifiers in JavaScript using tree-sitter.
package scanner

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ImportScanner = (*Scanner)(nil)

// Scanner is safe for concurrent use. Parsers are pooled because a
// tree-sitter parser holds mutable state.
type Scanner struct {
	parsers sync.Pool
}

// New creates a Scanner for JavaScript modules.
func New() *Scanner {
	return &Scanner{
		parsers: sync.Pool{
			New: func() any {
				p := sitter.NewParser()
				p.SetLanguage(javascript.GetLanguage())
				return p
			},
		},
	}
}

// Scan returns every static import, re-export and dynamic import with a
// literal specifier, in source order.
func (s *Scanner) Scan(ctx context.Context, src []byte) ([]domain.ImportSpan, error) {
	parser, _ := s.parsers.Get().(*sitter.Parser)
	defer s.parsers.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrScanFailed.Error())
	}
	defer tree.Close()

	var spans []domain.ImportSpan
	iter := sitter.NewIterator(tree.RootNode(), sitter.DFSMode)
	for {
		n, err := iter.Next()
		if err != nil || n == nil {
			break
		}

		switch n.Type() {
		case "import_statement", "export_statement":
			if span, ok := literal(n.ChildByFieldName("source"), src); ok {
				spans = append(spans, span)
			}
		case "call_expression":
			if span, ok := dynamicImport(n, src); ok {
				spans = append(spans, span)
			}
		}
	}
	return spans, nil
}

// dynamicImport matches import("x"). Calls with computed specifiers are skipped.
func dynamicImport(n *sitter.Node, src []byte) (domain.ImportSpan, bool) {
	callee := n.ChildByFieldName("function")
	if callee == nil || callee.Type() != "import" {
		return domain.ImportSpan{}, false
	}
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return domain.ImportSpan{}, false
	}
	span, ok := literal(args.NamedChild(0), src)
	span.Dynamic = true
	return span, ok
}

// literal returns the span of a string or substitution-free template string,
// excluding its delimiters.
func literal(n *sitter.Node, src []byte) (domain.ImportSpan, bool) {
	if n == nil {
		return domain.ImportSpan{}, false
	}
	switch n.Type() {
	case "string":
	case "template_string":
		for i := range int(n.NamedChildCount()) {
			if n.NamedChild(i).Type() == "template_substitution" {
				return domain.ImportSpan{}, false
			}
		}
	default:
		return domain.ImportSpan{}, false
	}

	start, end := int(n.StartByte())+1, int(n.EndByte())-1
	if start > end || end > len(src) {
		return domain.ImportSpan{}, false
	}
	return domain.ImportSpan{
		Specifier: string(src[start:end]),
		Start:     start,
		End:       end,
	}, true
}
