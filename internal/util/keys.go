package util

import "strings"

// NamespacePrefix returns the key prefix owned by a namespace ("<ns>:").
// An empty namespace owns every key.
func NamespacePrefix(ns string) string {
	if ns == "" {
		return ""
	}
	return ns + ":"
}

// StorageKey isolates a record key inside a flat keyspace by collection name.
func StorageKey(collection, key string) string {
	return collection + ":" + key
}

// EscapeGlob quotes the Redis glob metacharacters in s so it matches literally.
func EscapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\^`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
