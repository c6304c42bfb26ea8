package extract

import "fmt"

// Maintenance is the typed field set for a maintenance-window
// announcement: one calendar day with a start and an end clock time in
// the feed's local zone.
type Maintenance struct {
	Year, Month, Day       int
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

// DecodeMaintenance converts raw capture fields into a Maintenance record.
func DecodeMaintenance(f Fields) (Maintenance, error) {
	var m Maintenance
	var err error
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"year", &m.Year},
		{"month", &m.Month},
		{"day", &m.Day},
		{"startHour", &m.StartHour},
		{"startMinute", &m.StartMinute},
		{"endHour", &m.EndHour},
		{"endMinute", &m.EndMinute},
	} {
		if *field.dst, err = f.Int(field.name); err != nil {
			return Maintenance{}, fmt.Errorf("maintenance: %w", err)
		}
	}
	return m, nil
}

// AppVersion is the typed field set for a forced-update announcement: a
// version string and the local date/time it becomes mandatory.
type AppVersion struct {
	Version                        string
	Year, Month, Day, Hour, Minute int
}

// DecodeAppVersion converts raw capture fields into an AppVersion record.
func DecodeAppVersion(f Fields) (AppVersion, error) {
	version, ok := f["version"]
	if !ok || version == "" {
		return AppVersion{}, fmt.Errorf("app version: field %q not captured", "version")
	}
	v := AppVersion{Version: version}
	var err error
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"year", &v.Year},
		{"month", &v.Month},
		{"day", &v.Day},
		{"hour", &v.Hour},
		{"minute", &v.Minute},
	} {
		if *field.dst, err = f.Int(field.name); err != nil {
			return AppVersion{}, fmt.Errorf("app version: %w", err)
		}
	}
	return v, nil
}

// Bulletin is the typed field set for the recurring editorial bulletin:
// an issue number and the relative path of its cover image.
type Bulletin struct {
	Issue     int
	ImagePath string
}

// DecodeBulletin converts raw capture fields into a Bulletin record.
func DecodeBulletin(f Fields) (Bulletin, error) {
	issue, err := f.Int("issue")
	if err != nil {
		return Bulletin{}, fmt.Errorf("bulletin: %w", err)
	}
	path, ok := f["url"]
	if !ok || path == "" {
		return Bulletin{}, fmt.Errorf("bulletin: field %q not captured", "url")
	}
	return Bulletin{Issue: issue, ImagePath: path}, nil
}
