package route

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type trieNode struct {
	// static children
	children map[string]*trieNode

	// parameter segment, eg. :id
	paramChild *trieNode
	paramName  string

	// wildcard segment, eg. *file
	wildcardChild *trieNode
	wildcardName  string

	key      Key
	terminal bool
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// add stores key under its path pattern. Two patterns that differ only in
// the name of a parameter at the same position conflict.
func (n *trieNode) add(key Key) error {
	currentNode := n

	for segment := range strings.SplitSeq(strings.Trim(key.Path, "/"), "/") {
		if segment == "" {
			continue
		}

		switch {
		case strings.HasPrefix(segment, ":"):
			paramName := strings.TrimPrefix(segment, ":")
			if currentNode.paramChild == nil {
				currentNode.paramChild = newTrieNode()
				currentNode.paramName = paramName
			} else if currentNode.paramName != paramName {
				return errors.Wrapf(ErrConflictingPattern, "%s: :%s vs :%s", key.Path, paramName, currentNode.paramName)
			}
			currentNode = currentNode.paramChild

		case strings.HasPrefix(segment, "*"):
			wildcardName := strings.TrimPrefix(segment, "*")
			if currentNode.wildcardChild == nil {
				currentNode.wildcardChild = newTrieNode()
				currentNode.wildcardName = wildcardName
			} else if currentNode.wildcardName != wildcardName {
				return errors.Wrapf(ErrConflictingPattern, "%s: *%s vs *%s", key.Path, wildcardName, currentNode.wildcardName)
			}
			// a wildcard swallows the rest of the path
			return currentNode.wildcardChild.setKey(key)

		default:
			if _, ok := currentNode.children[segment]; !ok {
				currentNode.children[segment] = newTrieNode()
			}
			currentNode = currentNode.children[segment]
		}
	}

	return currentNode.setKey(key)
}

func (n *trieNode) setKey(key Key) error {
	if n.terminal {
		return errors.Wrapf(ErrDuplicateRoute, "%s overlaps %s", key.Path, n.key.Path)
	}
	n.key = key
	n.terminal = true
	return nil
}

// match finds the key registered for a concrete path and extracts its
// parameters. Static segments win over parameters, which win over wildcards.
// A branch that dead-ends falls back to the next one.
func (n *trieNode) match(path string) (Key, map[string]string, bool) {
	var segments []string
	for segment := range strings.SplitSeq(strings.Trim(path, "/"), "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	params := make(map[string]string)
	key, ok := n.walk(segments, params)
	if !ok {
		return Key{}, nil, false
	}
	return key, params, true
}

func (n *trieNode) walk(segments []string, params map[string]string) (Key, bool) {
	if len(segments) == 0 {
		if n.terminal {
			return n.key, true
		}
		// a wildcard also matches an empty remainder
		if w := n.wildcardChild; w != nil && w.terminal {
			params[n.wildcardName] = ""
			return w.key, true
		}
		return Key{}, false
	}

	segment, rest := segments[0], segments[1:]

	if child, ok := n.children[segment]; ok {
		if key, ok := child.walk(rest, params); ok {
			return key, true
		}
	}

	if n.paramChild != nil {
		if key, ok := n.paramChild.walk(rest, params); ok {
			params[n.paramName] = segment
			return key, true
		}
	}

	if w := n.wildcardChild; w != nil && w.terminal {
		params[n.wildcardName] = strings.Join(segments, "/")
		return w.key, true
	}

	return Key{}, false
}
