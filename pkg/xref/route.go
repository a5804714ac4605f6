// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package xref

import "strings"

const routeMaxLen = 200

// normalizeRouteLiteral decides whether an arbitrary string literal found
// anywhere in a source file is plausibly an HTTP route, and if so returns
// its normalized form. This is deliberately stricter than
// pkg/extract.NormalizeRoutePath: that one runs on a string already known
// to be a route (captured from an `@app.get(...)`-style decorator), while
// this one has to reject the vast majority of ordinary string literals a
// file scan turns up.
func normalizeRouteLiteral(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" || len(value) > routeMaxLen {
		return "", false
	}
	if strings.ContainsFunc(value, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }) {
		return "", false
	}
	if strings.Contains(value, "\\") || strings.HasPrefix(value, "./") || strings.HasPrefix(value, "../") {
		return "", false
	}
	if stripped, ok := stripURLPrefix(value); ok {
		value = stripped
	}
	if !strings.HasPrefix(value, "/") {
		return "", false
	}
	value = stripQueryFragment(value)
	if !strings.Contains(value, "/") {
		return "", false
	}
	collapsed := collapseSlashes(value)
	for len(collapsed) > 1 && strings.HasSuffix(collapsed, "/") {
		collapsed = collapsed[:len(collapsed)-1]
	}
	var out strings.Builder
	out.WriteByte('/')
	hasAlpha := false
	trimmed := strings.TrimLeft(collapsed, "/")
	for i, seg := range strings.Split(trimmed, "/") {
		if i > 0 {
			out.WriteByte('/')
		}
		norm := normalizeRouteSegment(seg)
		if strings.ContainsFunc(norm, func(r rune) bool { return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' }) {
			hasAlpha = true
		}
		out.WriteString(norm)
	}
	if !hasAlpha {
		return "", false
	}
	return strings.ToLower(out.String()), true
}

func stripURLPrefix(value string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(value, "http://"):
		rest = value[len("http://"):]
	case strings.HasPrefix(value, "https://"):
		rest = value[len("https://"):]
	default:
		return "", false
	}
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return "", false
	}
	return rest[slash:], true
}

func stripQueryFragment(value string) string {
	end := len(value)
	if i := strings.Index(value, "?"); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(value, "#"); i >= 0 && i < end {
		end = i
	}
	return value[:end]
}

func collapseSlashes(value string) string {
	var out strings.Builder
	lastSlash := false
	for _, ch := range value {
		if ch == '/' {
			if !lastSlash {
				out.WriteRune(ch)
				lastSlash = true
			}
		} else {
			out.WriteRune(ch)
			lastSlash = false
		}
	}
	return out.String()
}

func normalizeRouteSegment(segment string) string {
	trimmed := strings.TrimSpace(segment)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, ":") || strings.HasPrefix(trimmed, "{") ||
		strings.HasPrefix(trimmed, "<") || strings.HasPrefix(trimmed, "$") {
		return "{}"
	}
	if strings.Contains(trimmed, "${") || strings.Contains(trimmed, "*") {
		return "{}"
	}
	if isAllDigits(trimmed) {
		return "{}"
	}
	if looksLikeUUID(trimmed) {
		return "{}"
	}
	return trimmed
}

func isAllDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func looksLikeUUID(segment string) bool {
	hex, dash := 0, 0
	for _, ch := range segment {
		switch {
		case ch == '-':
			dash++
		case ch >= '0' && ch <= '9', ch >= 'a' && ch <= 'f', ch >= 'A' && ch <= 'F':
			hex++
		default:
			return false
		}
	}
	if dash > 0 {
		return hex >= 16
	}
	return false
}
