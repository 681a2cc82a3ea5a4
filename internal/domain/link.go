package domain

// LinkClass is the media category a link falls into.
type LinkClass int

const (
	// Weird is any link that does not look like media.
	Weird LinkClass = iota
	// Image is a media link with an image extension.
	Image
	// Video is any other media link (video files, bare CDN attachments).
	Video
)

// String returns the lower-case class name.
func (c LinkClass) String() string {
	switch c {
	case Image:
		return "image"
	case Video:
		return "video"
	default:
		return "weird"
	}
}

// Link is a URL picked out of a message, either from its text or its attachment list.
type Link struct {
	// URL is the raw link as it appeared in the message or the attachment's download URL.
	URL string `json:"url"`

	// Size is the attachment size in bytes. Zero for links found in text.
	Size int `json:"size,omitempty"`

	// FromAttachment reports whether the link is an attachment's direct URL.
	FromAttachment bool `json:"from_attachment,omitempty"`
}

// Classified holds links partitioned by class, each bucket in original order.
type Classified struct {
	Images []string `json:"images"`
	Videos []string `json:"videos"`
	Weird  []string `json:"weird"`
}

// Empty reports whether no bucket holds a link.
func (c Classified) Empty() bool {
	return len(c.Images) == 0 && len(c.Videos) == 0 && len(c.Weird) == 0
}

// Len is the total number of links across all buckets.
func (c Classified) Len() int {
	return len(c.Images) + len(c.Videos) + len(c.Weird)
}

// Append adds the buckets of other after the receiver's, keeping order.
func (c *Classified) Append(other Classified) {
	c.Images = append(c.Images, other.Images...)
	c.Videos = append(c.Videos, other.Videos...)
	c.Weird = append(c.Weird, other.Weird...)
}
