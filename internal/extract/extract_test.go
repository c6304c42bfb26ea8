package extract_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uwasa-watch/uwasa/internal/extract"
	"github.com/uwasa-watch/uwasa/internal/feed"
)

const maintenanceText = "いつもご利用いただきありがとうございます。" +
	"2024年6月1日(土) 2:00～4:00の間、メンテナンスを実施いたします。"

const appVersionText = "新しいバージョン 3.2.1 を公開しました。\n" +
	"2024年7月10日 15:00 以降は新バージョンへの更新が必須となります。"

const bulletinText = `マギアレポート 第129話を公開しました！<img src="magica/resource/image_web/page/announce/magirepo/magirepo_129.png">`

func TestCompileRequiresNamedGroups(t *testing.T) {
	t.Parallel()

	_, err := extract.Compile(`\d+`)
	require.Error(t, err)

	_, err = extract.Compile(`(?P<year>\d{4})`)
	require.NoError(t, err)
}

func TestCompileRejectsInvalidExpression(t *testing.T) {
	t.Parallel()

	_, err := extract.Compile(`(?P<broken>[`)
	require.Error(t, err)
}

func TestDefaultMaintenancePattern(t *testing.T) {
	t.Parallel()

	p := extract.MustCompile(extract.DefaultMaintenancePattern)
	fields, ok := p.Apply(maintenanceText)
	require.True(t, ok)

	m, err := extract.DecodeMaintenance(fields)
	require.NoError(t, err)
	require.Equal(t, extract.Maintenance{
		Year: 2024, Month: 6, Day: 1,
		StartHour: 2, StartMinute: 0,
		EndHour: 4, EndMinute: 0,
	}, m)
}

func TestDefaultAppVersionPattern(t *testing.T) {
	t.Parallel()

	p := extract.MustCompile(extract.DefaultAppVersionPattern)
	fields, ok := p.Apply(appVersionText)
	require.True(t, ok)

	v, err := extract.DecodeAppVersion(fields)
	require.NoError(t, err)
	require.Equal(t, "3.2.1", v.Version)
	require.Equal(t, 2024, v.Year)
	require.Equal(t, 7, v.Month)
	require.Equal(t, 10, v.Day)
	require.Equal(t, 15, v.Hour)
	require.Equal(t, 0, v.Minute)
}

func TestDefaultBulletinPattern(t *testing.T) {
	t.Parallel()

	p := extract.MustCompile(extract.DefaultBulletinPattern)
	fields, ok := p.Apply(bulletinText)
	require.True(t, ok)

	b, err := extract.DecodeBulletin(fields)
	require.NoError(t, err)
	require.Equal(t, 129, b.Issue)
	require.Equal(t, "magica/resource/image_web/page/announce/magirepo/magirepo_129.png", b.ImagePath)
}

func TestLatestPicksHighestIDRegardlessOfOrder(t *testing.T) {
	t.Parallel()

	p := extract.MustCompile(`issue (?P<issue>\d+)`)
	items := []feed.Item{
		{ID: 9, Category: feed.CategoryBulletin, Text: "issue 9"},
		{ID: 3, Category: feed.CategoryBulletin, Text: "issue 3"},
		{ID: 12, Category: feed.CategoryBulletin, Text: "issue 12"},
		{ID: 10, Category: feed.CategoryBulletin, Text: "issue 10"},
	}

	res, ok := extract.Latest(items, feed.CategoryBulletin, p, 0)
	require.True(t, ok)
	require.Equal(t, int64(12), res.ItemID)
	require.Equal(t, "12", res.Fields["issue"])
}

func TestLatestIgnoresOtherCategories(t *testing.T) {
	t.Parallel()

	p := extract.MustCompile(`issue (?P<issue>\d+)`)
	items := []feed.Item{
		{ID: 5, Category: feed.CategoryMaintenance, Text: "issue 5"},
		{ID: 2, Category: feed.CategoryBulletin, Text: "issue 2"},
	}

	res, ok := extract.Latest(items, feed.CategoryBulletin, p, 0)
	require.True(t, ok)
	require.Equal(t, int64(2), res.ItemID)
}

func TestLatestRespectsFloor(t *testing.T) {
	t.Parallel()

	p := extract.MustCompile(`issue (?P<issue>\d+)`)
	items := []feed.Item{
		{ID: 4, Category: feed.CategoryBulletin, Text: "issue 4"},
		{ID: 6, Category: feed.CategoryBulletin, Text: "issue 6"},
	}

	// Everything at or below the floor was already notified.
	_, ok := extract.Latest(items, feed.CategoryBulletin, p, 6)
	require.False(t, ok)

	res, ok := extract.Latest(items, feed.CategoryBulletin, p, 5)
	require.True(t, ok)
	require.Equal(t, int64(6), res.ItemID)
}

func TestLatestFirstSeenWinsOnDuplicateID(t *testing.T) {
	t.Parallel()

	// Duplicate ids are not expected from the origin, but if one
	// appears the earlier occurrence must stick.
	p := extract.MustCompile(`issue (?P<issue>\d+)`)
	items := []feed.Item{
		{ID: 8, Category: feed.CategoryBulletin, Text: "issue 1"},
		{ID: 8, Category: feed.CategoryBulletin, Text: "issue 2"},
	}

	res, ok := extract.Latest(items, feed.CategoryBulletin, p, 0)
	require.True(t, ok)
	require.Equal(t, "1", res.Fields["issue"])
}

func TestLatestNoMatchIsAbsenceNotError(t *testing.T) {
	t.Parallel()

	p := extract.MustCompile(`issue (?P<issue>\d+)`)
	items := []feed.Item{
		{ID: 3, Category: feed.CategoryBulletin, Text: "nothing to see"},
	}

	_, ok := extract.Latest(items, feed.CategoryBulletin, p, 0)
	require.False(t, ok)
}

func TestDecodeMaintenanceMissingField(t *testing.T) {
	t.Parallel()

	_, err := extract.DecodeMaintenance(extract.Fields{"year": "2024"})
	require.Error(t, err)
}
