// Package storage keeps uploaded media. Objects are addressed by slash
// separated keys such as chat-media/{chatID}/{millis}_{name}.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidKey     = errors.New("invalid object key")
)

// Bucket stores and serves media objects.
type Bucket interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds the key for a file attached to chatID.
func ObjectKey(chatID, filename string, at time.Time) string {
	name := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(filename, `\`, "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("chat-media/%s/%d_%s", chatID, at.UnixMilli(), name)
}

// PublicURL is where the media route serves key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/media/" + key
}

// CleanKey validates a key taken from a request path.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, `\`) {
		return "", ErrInvalidKey
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}
