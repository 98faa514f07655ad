package s3

import (
	"fmt"
	"path"
	"strings"
)

// keyspace maps store-relative keys onto the bucket under an optional root
// prefix.
type keyspace struct {
	root string
}

func newKeyspace(prefix string) keyspace {
	return keyspace{root: strings.Trim(strings.TrimSpace(prefix), "/")}
}

// object resolves a single object key. Keys that climb out of the root are
// rejected.
func (k keyspace) object(key string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if clean == "" {
		return "", fmt.Errorf("object key is required")
	}
	return k.absolute(clean), nil
}

// listing resolves a list prefix. A trailing slash is kept so "a/" does not
// also match "ab/".
func (k keyspace) listing(prefix string) (string, error) {
	clean, err := cleanKey(prefix)
	if err != nil {
		return "", err
	}
	full := k.absolute(clean)
	if full != "" && (clean == "" || strings.HasSuffix(strings.TrimSpace(prefix), "/")) {
		full += "/"
	}
	return full, nil
}

func (k keyspace) absolute(key string) string {
	switch {
	case k.root == "":
		return key
	case key == "":
		return k.root
	}
	return k.root + "/" + key
}

func (k keyspace) relative(key string) string {
	if k.root == "" {
		return key
	}
	return strings.TrimPrefix(key, k.root+"/")
}

func cleanKey(raw string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", nil
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("key %q must not contain '..'", raw)
		}
	}
	return path.Clean(trimmed), nil
}
