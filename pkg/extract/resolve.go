package extract

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/kraklabs/lidx/pkg/graph"
)

// extCandidates lists, per language, the suffixes (including "/index.<ext>"
// style directory candidates) tried when resolving a relative import
// specifier to a file on disk (spec §4.2.2).
var extCandidates = map[string][]string{
	"go":         {".go"},
	"python":     {".py", "/__init__.py"},
	"typescript": {".ts", ".tsx", ".mjs", ".cjs", "/index.ts", "/index.tsx"},
	"javascript": {".js", ".jsx", ".mjs", ".cjs", "/index.js", "/index.jsx"},
	"rust":       {".rs", "/mod.rs"},
	"csharp":     {".cs"},
	"lua":        {".lua", "/init.lua"},
	"bicep":      {".bicep"},
}

// resolveRelativeImport resolves a raw import specifier that looks like a
// relative path ("./foo", "../bar/baz") against dir (the importing file's
// directory) by probing files for each of lang's extension candidates.
// Returns the matching repo-relative path, or "" if none matched.
func resolveRelativeImport(lang, dir, spec string, files []string) string {
	if !strings.HasPrefix(spec, ".") {
		return ""
	}
	joined := path.Clean(path.Join(dir, spec))
	set := make(map[string]bool, len(files))
	for _, f := range files {
		set[f] = true
	}
	for _, cand := range extCandidates[lang] {
		var probe string
		if strings.HasPrefix(cand, "/") {
			probe = joined + cand
		} else {
			probe = joined + cand
		}
		if set[probe] {
			return probe
		}
	}
	if set[joined] {
		return joined
	}
	return ""
}

// resolveGenericImports walks edges, and for every IMPORTS edge whose
// target looks like a relative specifier, appends a matching IMPORTS_FILE
// edge (spec §4.2.2). Edges that don't resolve are left as-is — the
// endpoint stays searchable by qualname per spec §3's Edge invariant.
func resolveGenericImports(lang, relPath, moduleQualname string, edges []graph.EdgeInput, listFiles func() []string) []graph.EdgeInput {
	dir := path.Dir(relPath)
	files := listFiles()
	out := make([]graph.EdgeInput, len(edges))
	copy(out, edges)
	for _, e := range edges {
		if e.Kind != graph.EdgeImports {
			continue
		}
		dst := resolveRelativeImport(lang, dir, e.TargetQualname, files)
		if dst == "" {
			continue
		}
		dstQualname := strings.TrimSuffix(dst, path.Ext(dst))
		dstQualname = strings.ReplaceAll(dstQualname, "/", ".")
		out = append(out, graph.EdgeInput{
			Kind:           graph.EdgeImportsFile,
			SourceQualname: relPath,
			TargetQualname: dstQualname,
			Detail:         marshalJSONDetail(map[string]any{"src_path": relPath, "dst_path": dst, "confidence": 0.9}),
			Confidence:     0.9,
		})
	}
	return out
}

func marshalJSONDetail(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
