package extract

import (
	"regexp"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
)

// CSharpExtractor is a brace-depth line scanner, grounded on
// original_source/src/indexer/csharp.rs and the teacher's simplified
// fallback-parser texture (pkg/ingestion/parser_go.go's parseGoFile).
type CSharpExtractor struct{}

func NewCSharpExtractor() *CSharpExtractor { return &CSharpExtractor{} }

func (e *CSharpExtractor) Language() string { return "csharp" }

func (e *CSharpExtractor) ModuleQualnameFromRelPath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, ".cs")
	return strings.ReplaceAll(trimmed, "/", ".")
}

var (
	csNamespaceRe = regexp.MustCompile(`^namespace\s+([\w.]+)\s*\{?`)
	csClassRe     = regexp.MustCompile(`^(public|private|internal|protected)?\s*(static\s+|abstract\s+|sealed\s+|partial\s+)*class\s+(\w+)\s*(:\s*([\w.,\s<>]+))?\{?`)
	csInterfaceRe = regexp.MustCompile(`^(public|private|internal|protected)?\s*(partial\s+)?interface\s+(\w+)\s*(:\s*([\w.,\s<>]+))?\{?`)
	csMethodRe    = regexp.MustCompile(`^(public|private|internal|protected)\s+(static\s+|virtual\s+|override\s+|async\s+)*[\w<>\[\],. ]+?\s+(\w+)\s*\(([^)]*)\)\s*\{?$`)
	csUsingRe     = regexp.MustCompile(`^using\s+([\w.]+)\s*;`)
	csAttrRouteRe = regexp.MustCompile(`^\[Http(Get|Post|Put|Delete|Patch)\s*(\(\s*"([^"]*)"\s*\))?\]`)
	csCallRe      = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_.]*)\s*\(`)
)

type csFrame struct {
	depth    int
	qualname string
	kind     graph.SymbolKind
}

func (e *CSharpExtractor) Extract(src []byte, relPath, moduleQualname string) (graph.ExtractedFile, error) {
	out := graph.ExtractedFile{}
	out.Symbols = append(out.Symbols, moduleSymbol(moduleQualname, src))

	lines := strings.Split(string(src), "\n")
	depth := 0
	var stack []csFrame
	var pendingRoute *csAttrRoute

	scope := func() string {
		if len(stack) == 0 {
			return moduleQualname
		}
		return stack[len(stack)-1].qualname
	}

	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		openB := strings.Count(raw, "{")
		closeB := strings.Count(raw, "}")

		if m := csUsingRe.FindStringSubmatch(trimmed); m != nil {
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeImports, SourceQualname: moduleQualname, TargetQualname: m[1], EvidenceLine: lineNo, Confidence: 1.0})
			continue
		}

		if m := csAttrRouteRe.FindStringSubmatch(trimmed); m != nil {
			pendingRoute = &csAttrRoute{method: strings.ToUpper(m[1]), raw: m[3]}
			continue
		}

		if m := csNamespaceRe.FindStringSubmatch(trimmed); m != nil {
			stack = append(stack, csFrame{depth: depth + 1, qualname: m[1], kind: graph.KindNamespace})
			depth += openB - closeB
			continue
		}

		if m := csClassRe.FindStringSubmatch(trimmed); m != nil {
			name := m[3]
			qualname := scope() + "." + name
			out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindClass, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo})
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: scope(), TargetQualname: qualname})
			emitCsBases(&out, qualname, m[5])
			stack = append(stack, csFrame{depth: depth + 1, qualname: qualname, kind: graph.KindClass})
			depth += openB - closeB
			continue
		}

		if m := csInterfaceRe.FindStringSubmatch(trimmed); m != nil {
			name := m[3]
			qualname := scope() + "." + name
			out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindInterface, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo})
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: scope(), TargetQualname: qualname})
			emitCsBases(&out, qualname, m[5])
			stack = append(stack, csFrame{depth: depth + 1, qualname: qualname, kind: graph.KindInterface})
			depth += openB - closeB
			continue
		}

		if m := csMethodRe.FindStringSubmatch(trimmed); m != nil && len(stack) > 0 {
			name := m[3]
			container := scope()
			qualname := container + "." + name
			sig := name + "(" + m[4] + ")"
			out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindMethod, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo, Signature: sig})
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: container, TargetQualname: qualname})
			if pendingRoute != nil {
				norm, ok := NormalizeRoutePath(pendingRoute.raw)
				if ok {
					out.Edges = append(out.Edges, graph.EdgeInput{
						Kind: graph.EdgeHTTPRoute, SourceQualname: qualname, TargetQualname: norm,
						Detail:       marshalJSONDetail(map[string]any{"framework": "aspnet", "method": pendingRoute.method, "normalized": norm, "raw": pendingRoute.raw}),
						EvidenceLine: lineNo, Confidence: 1.0,
					})
				}
			}
			pendingRoute = nil
			stack = append(stack, csFrame{depth: depth + 1, qualname: qualname, kind: graph.KindMethod})
			depth += openB - closeB
			continue
		}

		pendingRoute = nil
		if len(stack) > 0 {
			ctx := Context{Module: moduleQualname}
			for _, cm := range csCallRe.FindAllStringSubmatch(trimmed, -1) {
				target, _ := ctx.QualifyCall(cm[1])
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeCalls, SourceQualname: scope(), TargetQualname: target, EvidenceLine: lineNo, Confidence: 1.0})
			}
		}

		depth += openB - closeB
		for len(stack) > 0 && depth < stack[len(stack)-1].depth {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for si := range out.Symbols {
				if out.Symbols[si].Qualname == f.qualname {
					out.Symbols[si].EndLine = lineNo
				}
			}
		}
	}
	return out, nil
}

type csAttrRoute struct {
	method string
	raw    string
}

func emitCsBases(out *graph.ExtractedFile, qualname, basesRaw string) {
	bases := strings.TrimSpace(basesRaw)
	if bases == "" {
		return
	}
	for j, b := range strings.Split(bases, ",") {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		kind := graph.EdgeImplements
		if j == 0 {
			kind = graph.EdgeExtends
		}
		out.Edges = append(out.Edges, graph.EdgeInput{Kind: kind, SourceQualname: qualname, TargetQualname: b})
	}
}

func (e *CSharpExtractor) ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	return resolveGenericImports("csharp", relPath, moduleQualname, edges, listFiles)
}
