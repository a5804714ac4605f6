package extract

import (
	"context"
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kraklabs/lidx/pkg/graph"
)

// GoExtractor grounds the Go language extractor on the teacher's
// pkg/ingestion/parser_go.go: the same ChildByFieldName-driven signature
// assembly and receiver-type unwrapping, generalized to emit the spec's
// uniform ExtractedFile instead of the teacher's FunctionEntity/TypeEntity.
type GoExtractor struct {
	parser *sitter.Parser
}

func NewGoExtractor() *GoExtractor {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoExtractor{parser: p}
}

func (e *GoExtractor) Language() string { return "go" }

func (e *GoExtractor) ModuleQualnameFromRelPath(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." {
		return "main"
	}
	return strings.ReplaceAll(dir, "/", ".")
}

// ResolveImports is a no-op for Go: import paths are module paths, not
// relative filesystem specifiers, so the generic relative-path resolver
// (used by TypeScript/JavaScript) does not apply. Go cross-file linkage is
// instead carried by the CALLS/CONTAINS edges already emitted per package.
func (e *GoExtractor) ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	return edges
}

func (e *GoExtractor) Extract(src []byte, relPath, moduleQualname string) (graph.ExtractedFile, error) {
	out := graph.ExtractedFile{}
	out.Symbols = append(out.Symbols, moduleSymbol(moduleQualname, src))

	tree, err := e.parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		// Parser failure: emit only the module symbol, per spec §7.
		return out, nil
	}
	defer tree.Close()
	root := tree.RootNode()

	ctx := Context{Module: moduleQualname}
	gw := &goWalker{src: src, mod: moduleQualname, out: &out}
	gw.walk(root, ctx)
	return out, nil
}

func moduleSymbol(qualname string, src []byte) graph.SymbolInput {
	return graph.SymbolInput{
		Kind:      graph.KindModule,
		Name:      lastSegment(qualname),
		Qualname:  qualname,
		StartLine: 1,
		EndLine:   lineCount(src),
		StartByte: 0,
		EndByte:   len(src),
	}
}

func lastSegment(qualname string) string {
	sep := strings.LastIndexAny(qualname, "./:")
	if sep < 0 {
		return qualname
	}
	return qualname[sep+1:]
}

func lineCount(src []byte) int {
	n := 1
	for _, b := range src {
		if b == '\n' {
			n++
		}
	}
	return n
}

type goWalker struct {
	src []byte
	mod string
	out *graph.ExtractedFile
}

func (w *goWalker) emitSymbol(s graph.SymbolInput, container string) {
	w.out.Symbols = append(w.out.Symbols, s)
	w.out.Edges = append(w.out.Edges, graph.EdgeInput{
		Kind:           graph.EdgeContains,
		SourceQualname: container,
		TargetQualname: s.Qualname,
	})
}

func (w *goWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.src[n.StartByte():n.EndByte()])
}

func (w *goWalker) span(n *sitter.Node) (startLine, endLine, startCol, endCol, startByte, endByte int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1,
		int(n.StartPoint().Column) + 1, int(n.EndPoint().Column) + 1,
		int(n.StartByte()), int(n.EndByte())
}

func (w *goWalker) walk(n *sitter.Node, ctx Context) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_declaration":
		w.walkImportDecl(n)
	case "function_declaration":
		w.walkFunction(n, ctx)
		return // children handled inside walkFunction's body scan
	case "method_declaration":
		w.walkMethod(n, ctx)
		return
	case "type_declaration":
		w.walkTypeDecl(n, ctx)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), ctx)
	}
}

func (w *goWalker) walkImportDecl(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "import_spec" {
			w.emitImportSpec(child)
		}
		if child.Type() == "import_spec_list" {
			for j := 0; j < int(child.ChildCount()); j++ {
				if child.Child(j).Type() == "import_spec" {
					w.emitImportSpec(child.Child(j))
				}
			}
		}
	}
}

func (w *goWalker) emitImportSpec(spec *sitter.Node) {
	pathNode := spec.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	raw := strings.Trim(w.text(pathNode), `"`)
	w.out.Edges = append(w.out.Edges, graph.EdgeInput{
		Kind:           graph.EdgeImports,
		SourceQualname: w.mod,
		TargetQualname: raw,
		Evidence:       w.text(spec),
		EvidenceLine:   int(spec.StartPoint().Row) + 1,
		Confidence:     1.0,
	})
}

func (w *goWalker) walkFunction(n *sitter.Node, ctx Context) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	sig := w.buildSignature("func "+name, n)
	qualname := ctx.Module + "." + name
	startLine, endLine, startCol, endCol, startByte, endByte := w.span(n)
	w.emitSymbol(graph.SymbolInput{
		Kind: graph.KindFunction, Name: name, Qualname: qualname,
		StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
		StartByte: startByte, EndByte: endByte, Signature: sig,
	}, ctx.Module)

	body := n.ChildByFieldName("body")
	fctx := ctx.WithContainer(qualname).EnterFunction()
	w.walkCalls(body, fctx, qualname)
}

func (w *goWalker) walkMethod(n *sitter.Node, ctx Context) {
	nameNode := n.ChildByFieldName("name")
	recvNode := n.ChildByFieldName("receiver")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	recvType := goReceiverType(recvNode, w.src)
	full := name
	if recvType != "" {
		full = recvType + "." + name
	}
	sig := w.buildSignature("func "+w.text(recvNode)+" "+name, n)
	qualname := ctx.Module + "." + full
	startLine, endLine, startCol, endCol, startByte, endByte := w.span(n)
	container := ctx.Module
	if recvType != "" {
		container = ctx.Module + "." + recvType
	}
	w.emitSymbol(graph.SymbolInput{
		Kind: graph.KindMethod, Name: name, Qualname: qualname,
		StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
		StartByte: startByte, EndByte: endByte, Signature: sig,
	}, container)

	body := n.ChildByFieldName("body")
	fctx := ctx.WithContainer(qualname).EnterFunction()
	w.walkCalls(body, fctx, qualname)
}

func (w *goWalker) buildSignature(prefix string, n *sitter.Node) string {
	var b strings.Builder
	b.WriteString(prefix)
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		b.WriteString(w.text(tp))
	}
	if p := n.ChildByFieldName("parameters"); p != nil {
		b.WriteString(w.text(p))
	}
	if r := n.ChildByFieldName("result"); r != nil {
		b.WriteString(" ")
		b.WriteString(w.text(r))
	}
	return b.String()
}

func goReceiverType(recv *sitter.Node, src []byte) string {
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.ChildCount()); i++ {
		child := recv.Child(i)
		if child.Type() == "parameter_declaration" {
			t := child.ChildByFieldName("type")
			if t != nil {
				return goBaseTypeName(t, src)
			}
		}
	}
	return ""
}

func goBaseTypeName(t *sitter.Node, src []byte) string {
	switch t.Type() {
	case "pointer_type":
		for i := 0; i < int(t.ChildCount()); i++ {
			c := t.Child(i)
			if c.Type() != "*" {
				return goBaseTypeName(c, src)
			}
		}
	case "generic_type":
		if tn := t.ChildByFieldName("type"); tn != nil {
			return string(src[tn.StartByte():tn.EndByte()])
		}
	case "type_identifier":
		return string(src[t.StartByte():t.EndByte()])
	}
	name := string(src[t.StartByte():t.EndByte()])
	name = strings.TrimPrefix(name, "*")
	if idx := strings.Index(name, "["); idx > 0 {
		name = name[:idx]
	}
	return name
}

func (w *goWalker) walkTypeDecl(n *sitter.Node, ctx Context) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() != "type_spec" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		typeNode := child.ChildByFieldName("type")
		if nameNode == nil || typeNode == nil {
			continue
		}
		name := w.text(nameNode)
		qualname := ctx.Module + "." + name
		kind := graph.KindType
		switch typeNode.Type() {
		case "struct_type":
			kind = graph.KindStruct
		case "interface_type":
			kind = graph.KindInterface
		}
		startLine, endLine, startCol, endCol, startByte, endByte := w.span(child)
		w.emitSymbol(graph.SymbolInput{
			Kind: kind, Name: name, Qualname: qualname,
			StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
			StartByte: startByte, EndByte: endByte, Signature: fmt.Sprintf("type %s %s", name, typeNode.Type()),
		}, ctx.Module)

		if typeNode.Type() == "interface_type" {
			// Embedded interfaces are parent interfaces -> EXTENDS.
			for j := 0; j < int(typeNode.ChildCount()); j++ {
				c := typeNode.Child(j)
				if c.Type() == "type_identifier" {
					w.out.Edges = append(w.out.Edges, graph.EdgeInput{
						Kind: graph.EdgeExtends, SourceQualname: qualname,
						TargetQualname: ctx.Module + "." + w.text(c),
					})
				}
			}
		}
		if typeNode.Type() == "struct_type" {
			// Embedded structs appear as anonymous field_declarations whose
			// "name" field is absent; such fields are the Go analogue of
			// inheritance and surface as EXTENDS rather than a field symbol.
			for j := 0; j < int(typeNode.ChildCount()); j++ {
				c := typeNode.Child(j)
				if c.Type() != "field_declaration_list" {
					continue
				}
				for k := 0; k < int(c.ChildCount()); k++ {
					fd := c.Child(k)
					if fd.Type() != "field_declaration" {
						continue
					}
					if fd.ChildByFieldName("name") == nil {
						if t := fd.ChildByFieldName("type"); t != nil {
							w.out.Edges = append(w.out.Edges, graph.EdgeInput{
								Kind: graph.EdgeExtends, SourceQualname: qualname,
								TargetQualname: ctx.Module + "." + goBaseTypeName(t, w.src),
							})
						}
					}
				}
			}
		}
	}
}

// walkCalls scans a function/method body for call_expression nodes and
// emits CALLS edges, qualifying targets per the Context rewrite rule.
func (w *goWalker) walkCalls(n *sitter.Node, ctx Context, caller string) {
	if n == nil {
		return
	}
	if n.Type() == "call_expression" {
		if fn := n.ChildByFieldName("function"); fn != nil {
			raw := w.text(fn)
			target, _ := ctx.QualifyCall(strings.ReplaceAll(raw, "::", "."))
			w.out.Edges = append(w.out.Edges, graph.EdgeInput{
				Kind: graph.EdgeCalls, SourceQualname: caller, TargetQualname: target,
				Evidence: raw, EvidenceLine: int(n.StartPoint().Row) + 1, Confidence: 1.0,
			})
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walkCalls(n.Child(i), ctx, caller)
	}
}
