package listing

import (
	"path"
	"strings"
)

// Clean normalises a remote path: absolute, no trailing slash, no empty or
// dot segments. The empty string becomes "/".
func Clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimLeft(p, "/"))
}

// JoinPath appends name to parent. A root parent yields "/name".
func JoinPath(parent, name string) string {
	parent = Clean(parent)
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// Parent returns the directory containing p. The parent of "/" is "/".
func Parent(p string) string {
	return path.Dir(Clean(p))
}

// Quote wraps s in single quotes for the agent's shell, so names holding
// quotes, $ or backticks reach the command verbatim.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Base returns the last element of p.
func Base(p string) string {
	return path.Base(Clean(p))
}
