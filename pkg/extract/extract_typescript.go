package extract

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/lidx/pkg/graph"
)

// TypeScriptExtractor grounds on the teacher's pkg/ingestion/parser_typescript.go
// walk shape (function and class discovery over a tree-sitter tree;
// interface declarations are not emitted as symbols), extended with
// fluent-style HTTP route detection of the app.get("/x", handler) form.
// Fastify's object form ({url, method, handler}) is not detected.
type TypeScriptExtractor struct {
	parser *sitter.Parser
	lang   string
}

func NewTypeScriptExtractor() *TypeScriptExtractor {
	p := sitter.NewParser()
	p.SetLanguage(typescript.GetLanguage())
	return &TypeScriptExtractor{parser: p, lang: "typescript"}
}

func (e *TypeScriptExtractor) Language() string { return e.lang }

func (e *TypeScriptExtractor) ModuleQualnameFromRelPath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, path.Ext(relPath))
	if strings.HasSuffix(trimmed, "/index") {
		trimmed = strings.TrimSuffix(trimmed, "/index")
	}
	return strings.ReplaceAll(trimmed, "/", ".")
}

func (e *TypeScriptExtractor) Extract(src []byte, relPath, moduleQualname string) (graph.ExtractedFile, error) {
	out := graph.ExtractedFile{}
	out.Symbols = append(out.Symbols, moduleSymbol(moduleQualname, src))

	tree, err := e.parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		return out, nil
	}
	defer tree.Close()

	w := &jsWalker{src: src, out: &out}
	w.walk(tree.RootNode(), Context{Module: moduleQualname})
	return out, nil
}

func (e *TypeScriptExtractor) ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	return resolveGenericImports(e.lang, relPath, moduleQualname, edges, listFiles)
}

// jsWalker is shared between TypeScript and JavaScript: the grammars agree
// closely enough on node type names (function_declaration, class_declaration,
// method_definition, call_expression, import_statement) for one walker.
type jsWalker struct {
	src []byte
	out *graph.ExtractedFile
}

func (w *jsWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.src[n.StartByte():n.EndByte()])
}

func (w *jsWalker) span(n *sitter.Node) (startLine, endLine, startCol, endCol, startByte, endByte int) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1,
		int(n.StartPoint().Column) + 1, int(n.EndPoint().Column) + 1,
		int(n.StartByte()), int(n.EndByte())
}

func (w *jsWalker) emit(s graph.SymbolInput, container string) {
	w.out.Symbols = append(w.out.Symbols, s)
	w.out.Edges = append(w.out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: container, TargetQualname: s.Qualname})
}

func (w *jsWalker) walk(n *sitter.Node, ctx Context) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_statement":
		w.emitImport(n, ctx)
	case "function_declaration":
		w.walkFunction(n, ctx)
		return
	case "class_declaration":
		w.walkClass(n, ctx)
		return
	case "call_expression":
		w.emitCallOrRoute(n, ctx)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), ctx)
	}
}

func (w *jsWalker) emitImport(n *sitter.Node, ctx Context) {
	src := n.ChildByFieldName("source")
	if src == nil {
		return
	}
	raw := strings.Trim(w.text(src), `"'`)
	w.out.Edges = append(w.out.Edges, graph.EdgeInput{
		Kind: graph.EdgeImports, SourceQualname: ctx.Module, TargetQualname: raw,
		Evidence: w.text(n), EvidenceLine: int(n.StartPoint().Row) + 1, Confidence: 1.0,
	})
}

func (w *jsWalker) walkFunction(n *sitter.Node, ctx Context) {
	nameNode := n.ChildByFieldName("name")
	name := w.text(nameNode)
	if name == "" {
		return
	}
	qualname := ctx.Module + "." + name
	sl, el, sc, ec, sb, eb := w.span(n)
	sig := "function " + name + w.text(n.ChildByFieldName("parameters"))
	w.emit(graph.SymbolInput{Kind: graph.KindFunction, Name: name, Qualname: qualname,
		StartLine: sl, EndLine: el, StartCol: sc, EndCol: ec, StartByte: sb, EndByte: eb, Signature: sig}, ctx.Module)

	body := n.ChildByFieldName("body")
	w.walk(body, ctx.WithContainer(qualname).EnterFunction())
}

func (w *jsWalker) walkClass(n *sitter.Node, ctx Context) {
	nameNode := n.ChildByFieldName("name")
	name := w.text(nameNode)
	if name == "" {
		return
	}
	qualname := ctx.Module + "." + name
	sl, el, sc, ec, sb, eb := w.span(n)
	w.emit(graph.SymbolInput{Kind: graph.KindClass, Name: name, Qualname: qualname,
		StartLine: sl, EndLine: el, StartCol: sc, EndCol: ec, StartByte: sb, EndByte: eb}, ctx.Module)

	if heritage := n.ChildByFieldName("heritage"); heritage != nil {
		w.emitHeritage(heritage, qualname)
	}

	cctx := ctx.WithContainer(qualname)
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		m := body.Child(i)
		if m.Type() != "method_definition" {
			continue
		}
		w.walkMethod(m, cctx, qualname)
	}
}

func (w *jsWalker) emitHeritage(n *sitter.Node, qualname string) {
	raw := w.text(n)
	kind := graph.EdgeExtends
	if strings.Contains(raw, "implements") {
		kind = graph.EdgeImplements
	}
	target := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(raw, "extends"), "implements"))
	target = strings.TrimSpace(strings.SplitN(target, "implements", 2)[0])
	if target == "" {
		return
	}
	w.out.Edges = append(w.out.Edges, graph.EdgeInput{Kind: kind, SourceQualname: qualname, TargetQualname: target})
}

func (w *jsWalker) walkMethod(n *sitter.Node, ctx Context, classQualname string) {
	nameNode := n.ChildByFieldName("name")
	name := w.text(nameNode)
	if name == "" {
		return
	}
	qualname := classQualname + "." + name
	sl, el, sc, ec, sb, eb := w.span(n)
	sig := name + w.text(n.ChildByFieldName("parameters"))
	w.emit(graph.SymbolInput{Kind: graph.KindMethod, Name: name, Qualname: qualname,
		StartLine: sl, EndLine: el, StartCol: sc, EndCol: ec, StartByte: sb, EndByte: eb, Signature: sig}, classQualname)

	// Only the body is walked: decorators such as @Get('/x') are not
	// inspected, so decorator-style routes produce no HTTP_ROUTE edge.
	w.walk(n.ChildByFieldName("body"), ctx.WithContainer(qualname).EnterFunction())
}

func (w *jsWalker) emitCallOrRoute(n *sitter.Node, ctx Context) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	raw := w.text(fn)
	args := n.ChildByFieldName("arguments")
	if route, ok := detectFluentRoute(raw, args, w); ok {
		w.out.Edges = append(w.out.Edges, graph.EdgeInput{
			Kind: route.kind, SourceQualname: ctx.CurrentScope(), TargetQualname: route.normalized,
			Detail: marshalJSONDetail(map[string]any{
				"framework": route.framework, "method": route.method,
				"normalized": route.normalized, "raw": route.raw,
			}),
			Evidence: raw, EvidenceLine: int(n.StartPoint().Row) + 1, Confidence: 1.0,
		})
		return
	}
	target, _ := ctx.QualifyCall(raw)
	w.out.Edges = append(w.out.Edges, graph.EdgeInput{
		Kind: graph.EdgeCalls, SourceQualname: ctx.CurrentScope(), TargetQualname: target,
		Evidence: raw, EvidenceLine: int(n.StartPoint().Row) + 1, Confidence: 1.0,
	})
}

type fluentRoute struct {
	kind       graph.EdgeKind
	framework  string
	method     string
	raw        string
	normalized string
}

var httpMethods = map[string]bool{"get": true, "post": true, "put": true, "delete": true, "patch": true, "options": true, "head": true}

// detectFluentRoute recognises app.get("/x", handler)-style registrations
// and client calls like axios.get(...)/fetch(...).
func detectFluentRoute(callee string, args *sitter.Node, w *jsWalker) (fluentRoute, bool) {
	parts := strings.Split(callee, ".")
	method := strings.ToLower(parts[len(parts)-1])
	if !httpMethods[method] && callee != "fetch" {
		return fluentRoute{}, false
	}
	if args == nil || args.ChildCount() == 0 {
		return fluentRoute{}, false
	}
	firstArg := args.Child(1) // child(0) is '(' token
	if firstArg == nil {
		return fluentRoute{}, false
	}
	raw := strings.Trim(w.text(firstArg), `"'`)
	norm, ok := NormalizeRoutePath(raw)
	if !ok {
		return fluentRoute{}, false
	}
	kind := graph.EdgeHTTPRoute
	if callee == "fetch" || strings.HasPrefix(callee, "axios") {
		kind = graph.EdgeHTTPCall
		if method == "" || callee == "fetch" {
			method = "get"
		}
	}
	return fluentRoute{kind: kind, framework: routeFrameworkFor(callee), method: strings.ToUpper(method), raw: raw, normalized: norm}, true
}

func routeFrameworkFor(callee string) string {
	switch {
	case strings.HasPrefix(callee, "axios"):
		return "axios"
	case callee == "fetch":
		return "fetch"
	default:
		return "express"
	}
}
