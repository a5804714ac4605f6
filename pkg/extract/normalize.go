package extract

import (
	"regexp"
	"strings"
)

var uuidSegment = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
var digitSegment = regexp.MustCompile(`^\d+$`)
var hasAlpha = regexp.MustCompile(`[A-Za-z]`)

// NormalizeRoutePath implements spec §4.2's path normalisation pipeline.
// It returns ("", false) for paths that end up empty or alpha-free.
func NormalizeRoutePath(raw string) (string, bool) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", false
	}
	// Strip query/fragment.
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	// Collapse consecutive slashes.
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		if seg == "" {
			continue
		}
		if isParamSegment(seg) {
			segs[i] = "{}"
		}
	}
	p = strings.Join(segs, "/")
	p = strings.ToLower(p)
	if !hasAlpha.MatchString(p) {
		return "", false
	}
	return p, true
}

func isParamSegment(seg string) bool {
	if digitSegment.MatchString(seg) {
		return true
	}
	if uuidSegment.MatchString(seg) {
		return true
	}
	if strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "{") || strings.HasSuffix(seg, "}") ||
		strings.HasPrefix(seg, "<") || strings.HasSuffix(seg, ">") || strings.HasPrefix(seg, "$") || seg == "*" {
		return true
	}
	return false
}

var channelPrefixes = []string{"sbt-", "sbq-", "sb-"}

// NormalizeChannelTarget implements the channel-topic normalisation rule in
// spec §4.2: strip common infra prefixes, drop separators, lower-case, and
// wrap as a channel:// pseudo-URL.
func NormalizeChannelTarget(raw string) string {
	t := raw
	lower := strings.ToLower(t)
	for _, p := range channelPrefixes {
		if strings.HasPrefix(lower, p) {
			t = t[len(p):]
			lower = strings.ToLower(t)
			break
		}
	}
	t = strings.ReplaceAll(t, "-", "")
	t = strings.ReplaceAll(t, "_", "")
	t = strings.ToLower(t)
	return "channel://" + t
}

// Context carries the per-walk extraction state the spec's design notes
// call for (§9): module, container stack, function depth, current scope,
// route prefix and framework-specific maps. It is passed by value into
// nested AST walks so scope is automatically restored when recursion
// returns, rather than pushed/popped on a shared mutable stack.
type Context struct {
	Module        string
	ContainerStack []string
	FunctionDepth int
	RoutePrefix   string
	GRPCClients   map[string]string // binding name -> service qualname
}

// CurrentScope returns the qualname of the innermost enclosing container, or
// Module if there is none.
func (c Context) CurrentScope() string {
	if len(c.ContainerStack) == 0 {
		return c.Module
	}
	return c.ContainerStack[len(c.ContainerStack)-1]
}

// WithContainer returns a copy of c with name pushed onto the container
// stack — callers pass the copy into the recursive walk so the original
// binding is untouched on return.
func (c Context) WithContainer(qualname string) Context {
	cp := c
	cp.ContainerStack = append(append([]string{}, c.ContainerStack...), qualname)
	return cp
}

// EnterFunction returns a copy of c with FunctionDepth incremented.
func (c Context) EnterFunction() Context {
	cp := c
	cp.FunctionDepth++
	return cp
}

// QualifyCall implements spec §4.2's call-target rewrite rule:
// self.x/this.x/cls.x/Self::x -> <container>.x; bare identifiers are
// qualified with the current container; dotted/scoped names pass through
// verbatim; anything containing a space or operator char is left raw.
func (c Context) QualifyCall(raw string) (qualname string, resolved bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.ContainsAny(raw, " \t()[]+-*/%<>=!&|") {
		return raw, false
	}
	for _, self := range []string{"self.", "this.", "cls.", "Self::"} {
		if strings.HasPrefix(raw, self) {
			member := raw[len(self):]
			return c.CurrentScope() + "." + member, true
		}
	}
	if strings.ContainsAny(raw, ".:") {
		return raw, true
	}
	return c.CurrentScope() + "." + raw, true
}
