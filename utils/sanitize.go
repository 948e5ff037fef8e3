package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips markup from user supplied text such as denial details.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
