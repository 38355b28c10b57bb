package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

var choices = SheetChoices{
	Profiles: []models.QualityProfile{{ID: 1, Name: "Any"}, {ID: 4, Name: "HD-1080p"}},
	Folders:  []models.RootFolder{{ID: 1, Path: "/movies"}, {ID: 2, Path: "/movies-4k"}},
	Tags:     []models.Tag{{ID: 7, Label: "kids"}, {ID: 3, Label: "4k"}},
	Monitors: []string{"movieOnly", "movieAndCollection", "none"},
}

func TestStartSheetDefaults(t *testing.T) {
	s, _ := newStore()
	sheet := s.StartSheet(1, models.ServiceRadarr, models.CatalogItem{Title: "Heat"}, choices)

	assert.Len(t, sheet.ID, 8)
	assert.Regexp(t, models.PayloadPattern, sheet.ID)
	assert.Equal(t, models.AddOptions{
		ProfileID:  1,
		RootFolder: "/movies",
		Monitor:    "movieOnly",
		SearchNow:  true,
	}, sheet.Options)
	assert.Equal(t, "Any", sheet.ProfileName())
}

func TestToggleCycles(t *testing.T) {
	s, _ := newStore()
	sheet := s.StartSheet(1, models.ServiceRadarr, models.CatalogItem{Title: "Heat"}, choices)

	sheet, err := s.Toggle(1, sheet.ID, FieldProfile)
	require.NoError(t, err)
	assert.Equal(t, int64(4), sheet.Options.ProfileID)
	sheet, err = s.Toggle(1, sheet.ID, FieldProfile)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sheet.Options.ProfileID)

	sheet, err = s.Toggle(1, sheet.ID, FieldFolder)
	require.NoError(t, err)
	assert.Equal(t, "/movies-4k", sheet.Options.RootFolder)

	for range 2 {
		sheet, err = s.Toggle(1, sheet.ID, FieldMonitor)
		require.NoError(t, err)
	}
	assert.Equal(t, "none", sheet.Options.Monitor)

	sheet, err = s.Toggle(1, sheet.ID, FieldSearch)
	require.NoError(t, err)
	assert.False(t, sheet.Options.SearchNow)

	_, err = s.Toggle(1, sheet.ID, "colour")
	assert.Error(t, err)
}

func TestToggleTag(t *testing.T) {
	s, _ := newStore()
	sheet := s.StartSheet(1, models.ServiceRadarr, models.CatalogItem{Title: "Heat"}, choices)

	sheet, err := s.ToggleTag(1, sheet.ID, 7)
	require.NoError(t, err)
	sheet, err = s.ToggleTag(1, sheet.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 7}, sheet.Options.Tags)
	assert.True(t, sheet.HasTag(7))

	sheet, err = s.ToggleTag(1, sheet.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, sheet.Options.Tags)

	_, err = s.ToggleTag(1, sheet.ID, 99)
	assert.Error(t, err)
}

func TestReturnedSheetIsACopy(t *testing.T) {
	s, _ := newStore()
	sheet := s.StartSheet(1, models.ServiceRadarr, models.CatalogItem{Title: "Heat"}, choices)
	sheet, _ = s.ToggleTag(1, sheet.ID, 7)
	sheet.Options.Tags[0] = 99

	stored, err := s.Sheet(1, sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, stored.Options.Tags)
}

func TestStaleSessionIsExpired(t *testing.T) {
	s, _ := newStore()
	old := s.StartSheet(1, models.ServiceRadarr, models.CatalogItem{Title: "Heat"}, choices)
	current := s.StartSheet(1, models.ServiceRadarr, models.CatalogItem{Title: "Ronin"}, choices)
	require.NotEqual(t, old.ID, current.ID)

	_, err := s.Toggle(1, old.ID, FieldSearch)
	assert.ErrorIs(t, err, service.ErrExpired)
	assert.Equal(t, service.KindExpired, service.KindOf(err))
}

func TestFinishClears(t *testing.T) {
	s, _ := newStore()
	sheet := s.StartSheet(1, models.ServiceSonarr, models.CatalogItem{Title: "Dark"}, choices)

	done, err := s.Finish(1, sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dark", done.Item.Title)
	assert.Equal(t, models.ServiceSonarr, done.Service)

	_, err = s.Finish(1, sheet.ID)
	assert.ErrorIs(t, err, service.ErrExpired)
}
