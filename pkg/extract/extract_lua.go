package extract

import (
	"path"
	"regexp"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
)

// LuaExtractor is a hand-written line scanner grounded on
// original_source/src/indexer/lua.rs: Lua has no block braces, so structure
// is recovered from "function"/"end" keyword pairing rather than depth
// counting, in the same spirit as the Python indentation scanner.
type LuaExtractor struct{}

func NewLuaExtractor() *LuaExtractor { return &LuaExtractor{} }

func (e *LuaExtractor) Language() string { return "lua" }

func (e *LuaExtractor) ModuleQualnameFromRelPath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, ".lua")
	trimmed = strings.TrimSuffix(trimmed, "/init")
	return strings.ReplaceAll(trimmed, "/", ".")
}

var (
	luaFunctionRe    = regexp.MustCompile(`^(local\s+)?function\s+([\w.:]+)\s*\(([^)]*)\)`)
	luaRequireRe     = regexp.MustCompile(`require\s*\(?\s*['"]([\w./]+)['"]`)
	luaRouteRe       = regexp.MustCompile(`:(get|post|put|delete|patch)\s*\(\s*['"]([^'"]+)['"]`)
	luaCallRe        = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_.:]*)\s*\(`)
)

type luaFrame struct {
	qualname  string
	kind      graph.SymbolKind
	startLine int
	isFunc    bool
}

func (e *LuaExtractor) Extract(src []byte, relPath, moduleQualname string) (graph.ExtractedFile, error) {
	out := graph.ExtractedFile{}
	out.Symbols = append(out.Symbols, moduleSymbol(moduleQualname, src))

	lines := strings.Split(string(src), "\n")
	var stack []luaFrame

	scope := func() string {
		if len(stack) == 0 {
			return moduleQualname
		}
		return stack[len(stack)-1].qualname
	}

	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		if m := luaRequireRe.FindStringSubmatch(trimmed); m != nil {
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeImports, SourceQualname: moduleQualname, TargetQualname: m[1], EvidenceLine: lineNo, Confidence: 1.0})
		}

		if m := luaFunctionRe.FindStringSubmatch(trimmed); m != nil {
			rawName := m[2]
			parts := regexp.MustCompile(`[.:]`).Split(rawName, -1)
			name := parts[len(parts)-1]
			container := scope()
			qualname := container + "." + strings.ReplaceAll(rawName, ":", ".")
			kind := graph.KindFunction
			if len(parts) > 1 {
				kind = graph.KindMethod
			}
			out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: kind, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo, Signature: rawName + "(" + m[3] + ")"})
			out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: container, TargetQualname: qualname})
			stack = append(stack, luaFrame{qualname: qualname, kind: kind, startLine: lineNo, isFunc: true})

			if rm := luaRouteRe.FindStringSubmatch(rawName); rm != nil {
				norm, ok := NormalizeRoutePath(rm[2])
				if ok {
					out.Edges = append(out.Edges, graph.EdgeInput{
						Kind: graph.EdgeHTTPRoute, SourceQualname: qualname, TargetQualname: norm,
						Detail: marshalJSONDetail(map[string]any{"framework": "openresty", "method": strings.ToUpper(rm[1]), "normalized": norm, "raw": rm[2]}), Confidence: 1.0,
					})
				}
			}
			continue
		}

		if len(stack) > 0 {
			ctx := Context{Module: moduleQualname}
			for _, cm := range luaCallRe.FindAllStringSubmatch(trimmed, -1) {
				target, _ := ctx.QualifyCall(cm[1])
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeCalls, SourceQualname: scope(), TargetQualname: target, EvidenceLine: lineNo, Confidence: 1.0})
			}
		}

		if strings.HasPrefix(trimmed, "end") || trimmed == "end" {
			if len(stack) > 0 && stack[len(stack)-1].isFunc {
				f := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for si := range out.Symbols {
					if out.Symbols[si].Qualname == f.qualname {
						out.Symbols[si].EndLine = lineNo
					}
				}
			}
		}
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for si := range out.Symbols {
			if out.Symbols[si].Qualname == f.qualname {
				out.Symbols[si].EndLine = len(lines)
			}
		}
	}
	return out, nil
}

func (e *LuaExtractor) ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	dir := path.Dir(relPath)
	files := listFiles()
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	out := make([]graph.EdgeInput, len(edges))
	copy(out, edges)
	for _, ed := range edges {
		if ed.Kind != graph.EdgeImports {
			continue
		}
		rel := strings.ReplaceAll(ed.TargetQualname, ".", "/")
		var dst string
		for _, cand := range []string{rel + ".lua", path.Join(rel, "init.lua"), path.Join(dir, rel+".lua")} {
			if set[cand] {
				dst = cand
				break
			}
		}
		if dst == "" {
			continue
		}
		out = append(out, graph.EdgeInput{
			Kind: graph.EdgeImportsFile, SourceQualname: relPath, TargetQualname: e.ModuleQualnameFromRelPath(dst),
			Detail: marshalJSONDetail(map[string]any{"src_path": relPath, "dst_path": dst, "confidence": 0.85}), Confidence: 0.85,
		})
	}
	return out
}
