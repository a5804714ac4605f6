package extract

import (
	"regexp"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
)

// BicepExtractor is the hand-written line scanner spec §4.2.1 requires: no
// tree-sitter grammar, state tracked as brace depth / bracket depth /
// in-block-comment / pending decorators, recognising top-level declarations
// at depth 0 and mining Service Bus topic/queue resource bodies for their
// channel-publish seed.
type BicepExtractor struct{}

func NewBicepExtractor() *BicepExtractor { return &BicepExtractor{} }

func (e *BicepExtractor) Language() string { return "bicep" }

func (e *BicepExtractor) ModuleQualnameFromRelPath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, ".bicep")
	return strings.ReplaceAll(trimmed, "/", ".")
}

var (
	bicepTargetScopeRe = regexp.MustCompile(`^targetScope\s*=\s*'([^']*)'`)
	bicepUsingRe       = regexp.MustCompile(`^using\s+'([^']*)'`)
	bicepResourceRe    = regexp.MustCompile(`^resource\s+(\w+)\s+'([^'@]+)@[^']*'\s*(existing)?\s*=`)
	bicepModuleRe      = regexp.MustCompile(`^module\s+(\w+)\s+'([^']*)'\s*=`)
	bicepParamRe       = regexp.MustCompile(`^param\s+(\w+)\s+(\w+)`)
	bicepVarRe         = regexp.MustCompile(`^var\s+(\w+)\s*=`)
	bicepOutputRe      = regexp.MustCompile(`^output\s+(\w+)\s+(\w+)\s*=`)
	bicepTypeRe        = regexp.MustCompile(`^type\s+(\w+)\s*=`)
	bicepFuncRe        = regexp.MustCompile(`^func\s+(\w+)\s*\(([^)]*)\)`)
	bicepDescriptionRe = regexp.MustCompile(`^metadata\s+description\s*=`)
	bicepDecoratorRe   = regexp.MustCompile(`^@(description|secure)\s*\(`)
	bicepNameLiteralRe = regexp.MustCompile(`^name\s*:\s*'([^']*)'`)

	// serviceBusTopicFilter matches the resource types whose "name:" literal
	// seeds a CHANNEL_PUBLISH target (spec's seed scenario 3).
	serviceBusTopicFilter = regexp.MustCompile(`Microsoft\.ServiceBus/namespaces/(topics|queues)\b`)
)

type bicepFrame struct {
	depth      int
	qualname   string
	kind       graph.SymbolKind
	isResource bool
	resType    string
}

func (e *BicepExtractor) Extract(src []byte, relPath, moduleQualname string) (graph.ExtractedFile, error) {
	out := graph.ExtractedFile{}
	out.Symbols = append(out.Symbols, moduleSymbol(moduleQualname, src))

	lines := strings.Split(string(src), "\n")
	depth := 0
	inBlockComment := false
	var stack []bicepFrame
	var pendingDecorators []string

	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)

		if inBlockComment {
			if idx := strings.Index(trimmed, "*/"); idx >= 0 {
				inBlockComment = false
				trimmed = strings.TrimSpace(trimmed[idx+2:])
			} else {
				continue
			}
		}
		if strings.HasPrefix(trimmed, "/*") && !strings.Contains(trimmed, "*/") {
			inBlockComment = true
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		openBr := strings.Count(raw, "{")
		closeBr := strings.Count(raw, "}")

		// Depth>=1: scan resource bodies for the channel-publish seed.
		if depth >= 1 && len(stack) > 0 && stack[len(stack)-1].isResource && serviceBusTopicFilter.MatchString(stack[len(stack)-1].resType) {
			if m := bicepNameLiteralRe.FindStringSubmatch(trimmed); m != nil {
				target := NormalizeChannelTarget(m[1])
				resQualname := stack[len(stack)-1].qualname
				out.Edges = append(out.Edges, graph.EdgeInput{
					Kind: graph.EdgeChannelPublish, SourceQualname: resQualname, TargetQualname: target,
					Detail:       marshalJSONDetail(map[string]any{"channel": target, "raw": m[1], "framework": "servicebus"}),
					EvidenceLine: lineNo, Confidence: 1.0,
				})
			}
		}

		if depth == 0 {
			if m := bicepDecoratorRe.FindStringSubmatch(trimmed); m != nil {
				pendingDecorators = append(pendingDecorators, trimmed)
				depth += openBr - closeBr
				continue
			}
			if bicepDescriptionRe.MatchString(trimmed) {
				depth += openBr - closeBr
				continue
			}
			if m := bicepTargetScopeRe.FindStringSubmatch(trimmed); m != nil {
				_ = m
				depth += openBr - closeBr
				continue
			}
			if m := bicepUsingRe.FindStringSubmatch(trimmed); m != nil {
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeImports, SourceQualname: moduleQualname, TargetQualname: m[1], EvidenceLine: lineNo, Confidence: 1.0})
				depth += openBr - closeBr
				continue
			}
			if m := bicepResourceRe.FindStringSubmatch(trimmed); m != nil {
				name, resType := m[1], m[2]
				qualname := moduleQualname + "." + name
				out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindResource, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: moduleQualname, TargetQualname: qualname})
				if openBr > closeBr {
					stack = append(stack, bicepFrame{depth: depth + 1, qualname: qualname, kind: graph.KindResource, isResource: true, resType: resType})
				}
				pendingDecorators = nil
				depth += openBr - closeBr
				continue
			}
			if m := bicepModuleRe.FindStringSubmatch(trimmed); m != nil {
				name := m[1]
				qualname := moduleQualname + "." + name
				out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindModuleRef, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: moduleQualname, TargetQualname: qualname})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeImports, SourceQualname: moduleQualname, TargetQualname: m[2], EvidenceLine: lineNo, Confidence: 1.0})
				if openBr > closeBr {
					stack = append(stack, bicepFrame{depth: depth + 1, qualname: qualname, kind: graph.KindModuleRef})
				}
				pendingDecorators = nil
				depth += openBr - closeBr
				continue
			}
			if m := bicepParamRe.FindStringSubmatch(trimmed); m != nil {
				name := m[1]
				qualname := moduleQualname + "." + name
				out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindParam, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo, Signature: m[2]})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: moduleQualname, TargetQualname: qualname})
				pendingDecorators = nil
				depth += openBr - closeBr
				continue
			}
			if m := bicepOutputRe.FindStringSubmatch(trimmed); m != nil {
				name := m[1]
				qualname := moduleQualname + "." + name
				out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindOutput, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo, Signature: m[2]})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: moduleQualname, TargetQualname: qualname})
				depth += openBr - closeBr
				continue
			}
			if m := bicepVarRe.FindStringSubmatch(trimmed); m != nil {
				name := m[1]
				qualname := moduleQualname + "." + name
				out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindVariable, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: moduleQualname, TargetQualname: qualname})
				depth += openBr - closeBr
				continue
			}
			if m := bicepTypeRe.FindStringSubmatch(trimmed); m != nil {
				name := m[1]
				qualname := moduleQualname + "." + name
				out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindType, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: moduleQualname, TargetQualname: qualname})
				depth += openBr - closeBr
				continue
			}
			if m := bicepFuncRe.FindStringSubmatch(trimmed); m != nil {
				name := m[1]
				qualname := moduleQualname + "." + name
				out.Symbols = append(out.Symbols, graph.SymbolInput{Kind: graph.KindFunction, Name: name, Qualname: qualname, StartLine: lineNo, EndLine: lineNo, Signature: "func " + name + "(" + m[2] + ")"})
				out.Edges = append(out.Edges, graph.EdgeInput{Kind: graph.EdgeContains, SourceQualname: moduleQualname, TargetQualname: qualname})
				if openBr > closeBr {
					stack = append(stack, bicepFrame{depth: depth + 1, qualname: qualname, kind: graph.KindFunction})
				}
				depth += openBr - closeBr
				continue
			}
		}

		depth += openBr - closeBr
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

func (e *BicepExtractor) ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	return resolveGenericImports("bicep", relPath, moduleQualname, edges, listFiles)
}
