// Package classifier decides whether a link points at media and what kind.
package classifier

import (
	"regexp"
	"strings"

	"mediarelay/internal/domain"
)

// cdnAttachmentPath marks links to files uploaded to Discord, which are media
// regardless of extension.
const cdnAttachmentPath = "cdn.discordapp.com/attachments"

var (
	mediaExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".mp4", ".mov", ".avi", ".webm", ".webp"}
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

	urlPattern = regexp.MustCompile(`https?://\S+`)
)

// Classify returns the class of url. Matching is case-insensitive on the whole
// string; no URL parsing is done, so anything unrecognised is Weird.
func Classify(url string) domain.LinkClass {
	lower := strings.ToLower(url)
	if !hasAnySuffix(lower, mediaExtensions) && !strings.Contains(lower, cdnAttachmentPath) {
		return domain.Weird
	}
	if hasAnySuffix(lower, imageExtensions) {
		return domain.Image
	}
	return domain.Video
}

// ExtractLinks returns every http(s) URL in text, up to the next whitespace, in order
// of appearance. Duplicates are kept.
func ExtractLinks(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// Gather builds the link list of a message: attachment URLs first, then links from
// the text.
func Gather(msg domain.Message) []domain.Link {
	textLinks := ExtractLinks(msg.Content)
	links := make([]domain.Link, 0, len(msg.Attachments)+len(textLinks))
	for _, a := range msg.Attachments {
		links = append(links, domain.Link{URL: a.URL, Size: a.Size, FromAttachment: true})
	}
	for _, u := range textLinks {
		links = append(links, domain.Link{URL: u})
	}
	return links
}

// Partition classifies links into buckets, keeping their relative order.
func Partition(links []domain.Link) domain.Classified {
	var out domain.Classified
	for _, l := range links {
		switch Classify(l.URL) {
		case domain.Image:
			out.Images = append(out.Images, l.URL)
		case domain.Video:
			out.Videos = append(out.Videos, l.URL)
		default:
			out.Weird = append(out.Weird, l.URL)
		}
	}
	return out
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
