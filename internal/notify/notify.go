// Package notify renders typed extraction records into outbound chat
// messages. Rendering is pure formatting; no notifier touches the
// network.
package notify

import (
	"fmt"
	"net/url"
	"time"

	"github.com/uwasa-watch/uwasa/internal/extract"
	"github.com/uwasa-watch/uwasa/internal/feed"
)

// The feed prints wall-clock times with no zone marker. It is operated
// from Japan, so JST is baked in as a fixed offset.
var feedZone = time.FixedZone("JST", 9*60*60)

// unixAt converts feed-local date/time fields to a Unix timestamp.
func unixAt(year, month, day, hour, minute int) int64 {
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, feedZone).Unix()
}

// Maintenance renders a maintenance-window record. Both timestamps are
// shown twice, absolute and relative.
func Maintenance(m extract.Maintenance) feed.Message {
	start := unixAt(m.Year, m.Month, m.Day, m.StartHour, m.StartMinute)
	end := unixAt(m.Year, m.Month, m.Day, m.EndHour, m.EndMinute)
	return feed.Message{
		Content: fmt.Sprintf(
			"Maintenance scheduled to start at <t:%d:f> (<t:%d:R>) and end at <t:%d:t> (<t:%d:R>).",
			start, start, end, end,
		),
	}
}

// AppVersion renders a forced-update record with the moment the new
// version becomes mandatory.
func AppVersion(v extract.AppVersion) feed.Message {
	mandatory := unixAt(v.Year, v.Month, v.Day, v.Hour, v.Minute)
	return feed.Message{
		Content: fmt.Sprintf(
			"New app version available: `%s`. It becomes mandatory on <t:%d:f> (<t:%d:R>).",
			v.Version, mandatory, mandatory,
		),
	}
}

// Bulletin renders a Magia Report issue announcement. The cover image
// path is relative in the feed and resolved against the primary origin.
func Bulletin(b extract.Bulletin, origin *url.URL) (feed.Message, error) {
	image, err := origin.Parse(b.ImagePath)
	if err != nil {
		return feed.Message{}, fmt.Errorf("resolve bulletin image path %q: %w", b.ImagePath, err)
	}
	return feed.Message{
		Content:  fmt.Sprintf("Magia Report Issue `#%d` is available!", b.Issue),
		ImageURL: image.String(),
	}, nil
}
