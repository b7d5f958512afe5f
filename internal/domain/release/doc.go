// Package release models published releases recorded in a folder feed.
package release
