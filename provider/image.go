package provider

import (
	"regexp"
	"strings"
)

const defaultImageMIMEType = "image/jpeg"

var dataURLHeadRe = regexp.MustCompile(`data:(image/[a-z]+);base64`)

// ParseImageData splits a browser data-URL
// ("data:image/png;base64,iVBORw0...") into its MIME type and raw base64
// payload. A string without a comma separator is treated as a bare
// base64 payload with the image/jpeg default.
func ParseImageData(data string) (mimeType, base64Data string) {
	head, payload, found := strings.Cut(data, ",")
	if !found {
		return defaultImageMIMEType, data
	}

	mimeType = defaultImageMIMEType
	if m := dataURLHeadRe.FindStringSubmatch(head); m != nil {
		mimeType = m[1]
	}

	return mimeType, payload
}
