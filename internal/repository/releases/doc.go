// Package releases persists the release index of a folder feed as YAML.
package releases
