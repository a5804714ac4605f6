package extract

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/kraklabs/lidx/pkg/graph"
)

// JavaScriptExtractor reuses TypeScript's jsWalker: the two grammars share
// node-type names for the constructs extracted here (functions, classes,
// calls, imports).
type JavaScriptExtractor struct {
	parser *sitter.Parser
}

func NewJavaScriptExtractor() *JavaScriptExtractor {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	return &JavaScriptExtractor{parser: p}
}

func (e *JavaScriptExtractor) Language() string { return "javascript" }

func (e *JavaScriptExtractor) ModuleQualnameFromRelPath(relPath string) string {
	trimmed := strings.TrimSuffix(relPath, path.Ext(relPath))
	trimmed = strings.TrimSuffix(trimmed, "/index")
	return strings.ReplaceAll(trimmed, "/", ".")
}

func (e *JavaScriptExtractor) Extract(src []byte, relPath, moduleQualname string) (graph.ExtractedFile, error) {
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

func (e *JavaScriptExtractor) ResolveImports(repoRoot, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	return resolveGenericImports("javascript", relPath, moduleQualname, edges, listFiles)
}
