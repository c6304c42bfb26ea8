package extract

// Default locale patterns for the Japanese announcement feed. They are
// data: deployments may override any of them through configuration, for
// instance when the feed operator reworks the announcement wording.
//
// Maintenance announcements carry one date and a clock-time range, e.g.
// 「2024年6月1日(土) 2:00～4:00の間、メンテナンスを実施いたします」.
// App-update announcements carry a version and the date/time the update
// becomes mandatory. The bulletin announcement carries an issue number
// and an inline cover image tag.
const (
	DefaultMaintenancePattern = `(?P<year>\d{4})年(?P<month>\d{1,2})月(?P<day>\d{1,2})日[^\d]*(?P<startHour>\d{1,2}):(?P<startMinute>\d{2})[～〜~-](?P<endHour>\d{1,2}):(?P<endMinute>\d{2})`

	DefaultAppVersionPattern = `(?s)バージョン\s*(?P<version>\d+(?:\.\d+)*).*?(?P<year>\d{4})年(?P<month>\d{1,2})月(?P<day>\d{1,2})日[^\d]*(?P<hour>\d{1,2}):(?P<minute>\d{2})`

	DefaultBulletinPattern = `(?s)第(?P<issue>\d+)話.*?src="(?P<url>[^"]+)"`
)
