package extract

import (
	"path"
	"regexp"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
)

// PythonExtractor is a hand-written indentation-tracking line scanner, in
// the spirit of the Bicep extractor's brace-depth scanner (spec §4.2.1) and
// the teacher's own "simplified" fallback parser (pkg/ingestion/parser_go.go's
// Parser.parseGoFile): no tree-sitter grammar is wired for Python in this
// tree, so structure is recovered from indentation and keyword prefixes
// rather than an AST.
type PythonExtractor struct{}

func NewPythonExtractor() *PythonExtractor { return &PythonExtractor{} }

func (e *PythonExtractor) Language() string { return "python" }

func (e *PythonExtractor) ModuleQualnameFromRelPath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, ".py")
	trimmed = strings.TrimSuffix(trimmed, "/__init__")
	return strings.ReplaceAll(trimmed, "/", ".")
}

var (
	pyDefRe       = regexp.MustCompile(`^(async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*(->\s*[^:]+)?:`)
	pyClassRe     = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\(([^)]*)\))?:`)
	pyImportRe    = regexp.MustCompile(`^import\s+([A-Za-z_][A-Za-z0-9_.]*)`)
	pyFromImportRe = regexp.MustCompile(`^from\s+(\.*[A-Za-z0-9_.]*)\s+import\s+`)
	pyDecoratorRe   = regexp.MustCompile(`^@([A-Za-z_][A-Za-z0-9_.]*)\s*\(\s*(['"])(.*?)\2`)
	pySubscribeRe   = regexp.MustCompile(`^@([A-Za-z_][A-Za-z0-9_.]*)\s*\(.*topic\s*=\s*(['"])(.*?)\2`)
	pyCallRe        = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_.]*)\s*\(`)
)

type pyFrame struct {
	indent    int
	qualname  string
	kind      graph.SymbolKind
	startLine int
}

func (e *PythonExtractor) Extract(src []byte, relPath, moduleQualname string) (graph.ExtractedFile, error) {
	out := graph.ExtractedFile{}
	out.Symbols = append(out.Symbols, moduleSymbol(moduleQualname, src))

	lines := strings.Split(string(src), "\n")
	var stack []pyFrame
	var pendingDecorators []string
	byteOffset := 0
	lineByteStart := make([]int, len(lines)+1)
	for i, l := range lines {
		lineByteStart[i] = byteOffset
		byteOffset += len(l) + 1
	}
	lineByteStart[len(lines)] = byteOffset

	scopeOf := func(indent int) (string, graph.SymbolKind) {
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			closeFrame(&out, f, len(lines))
		}
		if len(stack) == 0 {
			return moduleQualname, graph.KindModule
		}
		return stack[len(stack)-1].qualname, stack[len(stack)-1].kind
	}

	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimLeft(raw, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(raw) - len(trimmed)
		container, _ := scopeOf(indent)

		if strings.HasPrefix(trimmed, "@") {
			pendingDecorators = append(pendingDecorators, trimmed)
			continue
		}

		if m := pyClassRe.FindStringSubmatch(trimmed); m != nil {
			name := m[1]
			qualname := container + "." + name
			out.Symbols = append(out.Symbols, graph.SymbolInput{
				Kind: graph.KindClass, Name: name, Qualname: qualname,
				StartLine: lineNo, EndLine: lineNo, StartByte: lineByteStart[i],
			})
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: container, TargetQualname: qualname})
			if bases := strings.TrimSpace(m[3]); bases != "" {
				for j, b := range strings.Split(bases, ",") {
					b = strings.TrimSpace(b)
					if b == "" || b == "object" {
						continue
					}
					kind := graph.EdgeImplements
					if j == 0 {
						kind = graph.EdgeExtends
					}
					out.Edges = append(out.Edges, graph.EdgeInput{Kind: kind, SourceQualname: qualname, TargetQualname: b})
				}
			}
			stack = append(stack, pyFrame{indent: indent, qualname: qualname, kind: graph.KindClass, startLine: lineNo})
			pendingDecorators = nil
			continue
		}

		if m := pyDefRe.FindStringSubmatch(trimmed); m != nil {
			name := m[2]
			kind := graph.KindFunction
			if len(stack) > 0 && stack[len(stack)-1].kind == graph.KindClass {
				kind = graph.KindMethod
			}
			qualname := container + "." + name
			sig := "def " + name + "(" + m[3] + ")" + strings.TrimSpace(m[4])
			out.Symbols = append(out.Symbols, graph.SymbolInput{
				Kind: kind, Name: name, Qualname: qualname,
				StartLine: lineNo, EndLine: lineNo, StartByte: lineByteStart[i], Signature: sig,
			})
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: container, TargetQualname: qualname})
			for _, dec := range pendingDecorators {
				emitPyRouteFromDecorator(&out, dec, qualname, lineNo)
				emitPyChannelFromDecorator(&out, dec, qualname, lineNo)
			}
			pendingDecorators = nil
			stack = append(stack, pyFrame{indent: indent, qualname: qualname, kind: kind, startLine: lineNo})
			continue
		}

		pendingDecorators = nil

		if m := pyImportRe.FindStringSubmatch(trimmed); m != nil {
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeImports, SourceQualname: moduleQualname, TargetQualname: m[1], EvidenceLine: lineNo, Confidence: 1.0})
		} else if m := pyFromImportRe.FindStringSubmatch(trimmed); m != nil {
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeImports, SourceQualname: moduleQualname, TargetQualname: m[1], EvidenceLine: lineNo, Confidence: 1.0})
		}

		emitPyCalls(&out, trimmed, container, lineNo)
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		closeFrame(&out, f, len(lines))
	}
	return out, nil
}

func closeFrame(out *graph.ExtractedFile, f pyFrame, lastLine int) {
	for i := range out.Symbols {
		if out.Symbols[i].Qualname == f.qualname && out.Symbols[i].EndLine == out.Symbols[i].StartLine {
			out.Symbols[i].EndLine = lastLine
		}
	}
}

var httpCallModules = map[string]bool{"requests": true, "httpx": true}

// emitPyChannelFromDecorator recognises @subscribe(topic="orders")-style
// bindings and emits a CHANNEL_SUBSCRIBE edge to the normalised channel
// target, so infrastructure-declared topics (Bicep) bridge into consuming
// application code (spec §4.2's channel framework-awareness rule).
func emitPyChannelFromDecorator(out *graph.ExtractedFile, decorator, handlerQualname string, line int) {
	m := pySubscribeRe.FindStringSubmatch(decorator)
	if m == nil {
		return
	}
	topic := m[3]
	target := NormalizeChannelTarget(topic)
	out.Edges = append(out.Edges, graph.EdgeInput{
		Kind: graph.EdgeChannelSubscribe, SourceQualname: handlerQualname, TargetQualname: target,
		Detail:       marshalJSONDetail(map[string]any{"channel": target, "raw": topic, "framework": "pubsub"}),
		EvidenceLine: line, Confidence: 1.0,
	})
}

func emitPyRouteFromDecorator(out *graph.ExtractedFile, decorator, handlerQualname string, line int) {
	m := pyDecoratorRe.FindStringSubmatch(decorator)
	if m == nil {
		return
	}
	callee := m[1] // e.g. "app.get" or "subscribe" (topic kwarg handled separately)
	rawPath := m[3]
	parts := strings.Split(callee, ".")
	method := strings.ToUpper(parts[len(parts)-1])
	if httpMethods[strings.ToLower(method)] {
		norm, ok := NormalizeRoutePath(rawPath)
		if !ok {
			return
		}
		out.Edges = append(out.Edges, graph.EdgeInput{
			Kind: graph.EdgeHTTPRoute, SourceQualname: handlerQualname, TargetQualname: norm,
			Detail:       marshalJSONDetail(map[string]any{"framework": "fastapi", "method": method, "normalized": norm, "raw": rawPath}),
			EvidenceLine: line, Confidence: 1.0,
		})
	}
}

func emitPyCalls(out *graph.ExtractedFile, line, scope string, lineNo int) {
	for _, m := range pyCallRe.FindAllStringSubmatch(line, -1) {
		callee := m[1]
		base := strings.SplitN(callee, ".", 2)[0]
		if httpCallModules[base] && strings.Contains(callee, ".") {
			continue // handled as HTTP_CALL below when arg is a literal path
		}
		ctx := Context{Module: scope}
		target, _ := ctx.QualifyCall(callee)
		out.Edges = append(out.Edges, graph.EdgeInput{
			Kind: graph.EdgeCalls, SourceQualname: scope, TargetQualname: target,
			Evidence: strings.TrimSpace(line), EvidenceLine: lineNo, Confidence: 1.0,
		})
	}
	// HTTP_CALL: requests.post("/path"), requests.get("/path"), ...
	if mm := regexp.MustCompile(`(requests|httpx)\.(get|post|put|delete|patch)\(\s*['"]([^'"]+)['"]`).FindStringSubmatch(line); mm != nil {
		norm, ok := NormalizeRoutePath(mm[3])
		if ok {
			out.Edges = append(out.Edges, graph.EdgeInput{
				Kind: graph.EdgeHTTPCall, SourceQualname: scope, TargetQualname: norm,
				Detail:       marshalJSONDetail(map[string]any{"framework": mm[1], "method": strings.ToUpper(mm[2]), "normalized": norm, "raw": mm[3]}),
				EvidenceLine: lineNo, Confidence: 1.0,
			})
		}
	}
}

func (e *PythonExtractor) ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	dir := path.Dir(relPath)
	files := listFiles()
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	out := make([]graph.EdgeInput, len(edges))
	copy(out, edges)
	for _, e := range edges {
		if e.Kind != graph.EdgeImports || !strings.HasPrefix(e.TargetQualname, ".") {
			continue
		}
		level := 0
		spec := e.TargetQualname
		for strings.HasPrefix(spec, ".") {
			level++
			spec = spec[1:]
		}
		base := dir
		for i := 1; i < level; i++ {
			base = path.Dir(base)
		}
		rel := strings.ReplaceAll(spec, ".", "/")
		candidate := path.Join(base, rel)
		dst := ""
		for _, cand := range []string{candidate + ".py", candidate + "/__init__.py"} {
			if set[cand] {
				dst = cand
				break
			}
		}
		if dst == "" {
			continue
		}
		dstQualname := e.ModuleQualnameFromRelPath(dst)
		out = append(out, graph.EdgeInput{
			Kind: graph.EdgeImportsFile, SourceQualname: relPath, TargetQualname: dstQualname,
			Detail: marshalJSONDetail(map[string]any{"src_path": relPath, "dst_path": dst, "confidence": 0.9}), Confidence: 0.9,
		})
	}
	return out
}
