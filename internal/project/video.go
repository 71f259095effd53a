package project

import "strings"

// videoAliases lists the legacy field names for the video source, most
// preferred first.
var videoAliases = []string{"videoUrl", "video", "videoURL", "video_link"}

const (
	blobHost = "github.com"
	rawHost  = "raw.githubusercontent.com"
	blobPath = "/blob/"
)

// Video is the resolved playable source of a record.
type Video struct {
	URL      string `json:"url"`
	HasVideo bool   `json:"hasVideo"`
}

// ResolveVideo picks the first populated alias and turns repository blob
// links into raw file links. HasVideo is also set by the record's hasVideo
// marker, so it can be true with an empty URL.
func ResolveVideo(rec Record) Video {
	url := ""
	for _, alias := range videoAliases {
		if value, ok := rec[alias].(string); ok && value != "" {
			url = value
			break
		}
	}
	url = RawVideoURL(url)
	return Video{URL: url, HasVideo: url != "" || truthy(rec["hasVideo"])}
}

// RawVideoURL rewrites a github.com/.../blob/... page link to the raw file.
// Anything else is returned unchanged.
func RawVideoURL(url string) string {
	if !strings.Contains(url, blobHost) || !strings.Contains(url, blobPath) {
		return url
	}
	url = strings.Replace(url, blobHost, rawHost, 1)
	return strings.Replace(url, blobPath, "/", 1)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}
