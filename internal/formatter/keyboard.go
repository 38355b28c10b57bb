package formatter

import (
	"fmt"

	"github.com/go-telegram/bot/models"

	"github.com/hryarih32/mediacatalogbot/internal/flow"
	"github.com/hryarih32/mediacatalogbot/internal/pager"
	appmodels "github.com/hryarih32/mediacatalogbot/pkg/models"
)

// maxButtonText keeps list buttons on one line on phones
const maxButtonText = 48

func button(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func backRow(token string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{button("⬅️ Back", token)}
}

func keyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	var kept [][]models.InlineKeyboardButton
	for _, row := range rows {
		if len(row) > 0 {
			kept = append(kept, row)
		}
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kept}
}

func label(s string) string {
	r := []rune(s)
	if len(r) <= maxButtonText {
		return s
	}
	return string(r[:maxButtonText-1]) + "…"
}

// BuildMainMenuKeyboard creates the root menu from available features
func BuildMainMenuKeyboard(features appmodels.Features) *models.InlineKeyboardMarkup {
	var services, extra []models.InlineKeyboardButton
	if features.Radarr {
		services = append(services, button("🎬 Radarr", appmodels.CallbackRadarrMenu))
	}
	if features.Sonarr {
		services = append(services, button("📺 Sonarr", appmodels.CallbackSonarrMenu))
	}
	if features.Plex {
		services = append(services, button("🍿 Plex", appmodels.CallbackPlexMenu))
	}
	if features.AnyManager() {
		extra = append(extra, button("⬇️ Add download", appmodels.CallbackDownloadAdd))
	}
	if features.Power || features.Media {
		extra = append(extra, button("🖥 PC", appmodels.CallbackPCMenu))
	}
	return keyboard(
		services,
		extra,
		[]models.InlineKeyboardButton{button("⚙️ Settings", appmodels.CallbackSettingsMenu)},
	)
}

// BuildRadarrKeyboard creates the Radarr menu
func BuildRadarrKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{
			button("➕ Add movie", appmodels.CallbackRadarrAdd),
			button("📥 Queue", appmodels.CallbackRadarrQueue),
		},
		[]models.InlineKeyboardButton{
			button("📂 Rescan", appmodels.CallbackRadarrRescan),
			button("✏️ Rename", appmodels.CallbackRadarrRename),
		},
		[]models.InlineKeyboardButton{button("🔄 Refresh metadata", appmodels.CallbackRadarrRefresh)},
		backRow(appmodels.CallbackMainMenu),
	)
}

// BuildSonarrKeyboard creates the Sonarr menu
func BuildSonarrKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{
			button("➕ Add series", appmodels.CallbackSonarrAdd),
			button("📥 Queue", appmodels.CallbackSonarrQueue),
		},
		[]models.InlineKeyboardButton{button("🔎 Missing episodes", appmodels.CallbackSonarrWanted)},
		[]models.InlineKeyboardButton{
			button("📂 Rescan", appmodels.CallbackSonarrRescan),
			button("✏️ Rename", appmodels.CallbackSonarrRename),
		},
		[]models.InlineKeyboardButton{button("🔄 Refresh metadata", appmodels.CallbackSonarrRefresh)},
		backRow(appmodels.CallbackMainMenu),
	)
}

// BuildPlexKeyboard creates the Plex menu
func BuildPlexKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{
			button("📚 Libraries", appmodels.CallbackPlexLibraries),
			button("▶️ Sessions", appmodels.CallbackPlexSessions),
		},
		[]models.InlineKeyboardButton{
			button("🆕 Recently added", appmodels.CallbackPlexRecent),
			button("🔍 Search", appmodels.CallbackPlexSearch),
		},
		[]models.InlineKeyboardButton{button("ℹ️ Server info", appmodels.CallbackPlexInfo)},
		[]models.InlineKeyboardButton{
			button("🧹 Clean bundles", appmodels.CallbackPlexBundles),
			button("🗜 Optimize DB", appmodels.CallbackPlexOptimize),
		},
		backRow(appmodels.CallbackMainMenu),
	)
}

// BuildPCKeyboard creates the host control menu. Volume keys are shown
// only when the host has a volume backend.
func BuildPCKeyboard(features appmodels.Features) *models.InlineKeyboardMarkup {
	var playback, volume, power []models.InlineKeyboardButton
	if features.Media {
		playback = []models.InlineKeyboardButton{
			button("⏮", appmodels.PrefixPC+string(appmodels.KeyPrevious)),
			button("⏯", appmodels.PrefixPC+string(appmodels.KeyPlayPause)),
			button("⏭", appmodels.PrefixPC+string(appmodels.KeyNext)),
		}
		if features.Volume {
			volume = []models.InlineKeyboardButton{
				button("🔉", appmodels.PrefixPC+string(appmodels.KeyVolumeDown)),
				button("🔇", appmodels.PrefixPC+string(appmodels.KeyMute)),
				button("🔊", appmodels.PrefixPC+string(appmodels.KeyVolumeUp)),
			}
		}
	}
	if features.Power {
		power = []models.InlineKeyboardButton{
			button("⏻ Shutdown", appmodels.CallbackPCShutdown),
			button("🔄 Restart", appmodels.CallbackPCRestart),
		}
	}
	return keyboard(playback, volume, power, backRow(appmodels.CallbackMainMenu))
}

// BuildSettingsKeyboard creates the settings screen keyboard
func BuildSettingsKeyboard() *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{button("🔁 Reload settings", appmodels.CallbackSettingsReload)},
		backRow(appmodels.CallbackMainMenu),
	)
}

// BuildPromptKeyboard creates the keyboard of a flow waiting for text
func BuildPromptKeyboard(kind appmodels.FlowKind, target string) *models.InlineKeyboardMarkup {
	var targetRow []models.InlineKeyboardButton
	if kind == appmodels.FlowAddDownload {
		targetRow = []models.InlineKeyboardButton{
			button("🎯 Target: "+ServiceName(target), appmodels.CallbackDownloadTarget),
		}
	}
	return keyboard(targetRow, []models.InlineKeyboardButton{button("✖️ Cancel", appmodels.CallbackFlowCancel)})
}

// BuildQueueKeyboard creates one page of queue item buttons
func BuildQueueKeyboard(surface, itemPrefix, back string, page pager.Page[appmodels.QueueItem]) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(page.Items)+2)
	for i, item := range page.Items {
		rows = append(rows, []models.InlineKeyboardButton{
			button(label(fmt.Sprintf("%d. %s", page.Offset+i+1, item.Title)), appmodels.Int64Token(itemPrefix, item.ID)),
		})
	}
	rows = append(rows, pager.Controls(surface, page.Number, page.Total, back)...)
	return keyboard(rows...)
}

// BuildQueueItemKeyboard creates the actions of one queue item
func BuildQueueItemKeyboard(removePrefix, blockPrefix, surface string, id int64, page int) *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{button("🗑 Remove", appmodels.Int64Token(removePrefix, id))},
		[]models.InlineKeyboardButton{button("⛔ Blocklist and search again", appmodels.Int64Token(blockPrefix, id))},
		backRow(appmodels.PageToken(surface, page)),
	)
}

// BuildWantedKeyboard creates one page of missing episode buttons
func BuildWantedKeyboard(page pager.Page[appmodels.WantedEpisode]) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(page.Items)+2)
	for _, ep := range page.Items {
		rows = append(rows, []models.InlineKeyboardButton{
			button(label("🔍 "+EpisodeLabel(ep)), appmodels.Int64Token(appmodels.PrefixSonarrWantedItem, ep.ID)),
		})
	}
	rows = append(rows, pager.Controls(appmodels.SurfaceSonarrWanted, page.Number, page.Total, appmodels.CallbackSonarrMenu)...)
	return keyboard(rows...)
}

// BuildResultsKeyboard creates one page of catalog result buttons. The
// payload is the index into the stored results.
func BuildResultsKeyboard(page pager.Page[appmodels.CatalogItem]) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(page.Items)+2)
	for i, item := range page.Items {
		if item.InLibrary {
			continue
		}
		rows = append(rows, []models.InlineKeyboardButton{
			button(label("➕ "+CatalogLabel(item)), appmodels.Token(appmodels.PrefixCatalogPick, fmt.Sprint(page.Offset+i))),
		})
	}
	rows = append(rows, pager.Controls(appmodels.SurfaceCatalogResults, page.Number, page.Total, appmodels.CallbackFlowCancel)...)
	return keyboard(rows...)
}

// SheetFieldToken builds the toggle token of a sheet field
func SheetFieldToken(sid, field string) string {
	return appmodels.Token(appmodels.PrefixSheetField, sid+"."+field)
}

// SheetTagToken builds the toggle token of a sheet tag
func SheetTagToken(sid string, tagID int64) string {
	return appmodels.Token(appmodels.PrefixSheetTag, fmt.Sprintf("%s.%d", sid, tagID))
}

// BuildSheetKeyboard creates the add sheet toggles
func BuildSheetKeyboard(sheet flow.AddSheet) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{button(label("🎚 Profile: "+sheet.ProfileName()), SheetFieldToken(sheet.ID, flow.FieldProfile))},
		{button(label("📁 Folder: "+orDash(sheet.Options.RootFolder)), SheetFieldToken(sheet.ID, flow.FieldFolder))},
		{button(label("👁 Monitor: "+orDash(sheet.Options.Monitor)), SheetFieldToken(sheet.ID, flow.FieldMonitor))},
		{button("🔍 Search on add: "+yesNo(sheet.Options.SearchNow), SheetFieldToken(sheet.ID, flow.FieldSearch))},
	}

	var tagRow []models.InlineKeyboardButton
	for _, t := range sheet.Choices.Tags {
		mark := "☐ "
		if sheet.HasTag(t.ID) {
			mark = "☑ "
		}
		tagRow = append(tagRow, button(label(mark+t.Label), SheetTagToken(sheet.ID, t.ID)))
		if len(tagRow) == 3 {
			rows = append(rows, tagRow)
			tagRow = nil
		}
	}
	rows = append(rows, tagRow)

	rows = append(rows, []models.InlineKeyboardButton{
		button("✅ Add", appmodels.Token(appmodels.PrefixSheetSubmit, sheet.ID)),
		button("✖️ Cancel", appmodels.CallbackFlowCancel),
	})
	return keyboard(rows...)
}

// BuildLibrariesKeyboard creates the Plex library list
func BuildLibrariesKeyboard(libs []appmodels.Library) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(libs)+1)
	for _, lib := range libs {
		rows = append(rows, []models.InlineKeyboardButton{
			button(label("📚 "+lib.Title), appmodels.Token(appmodels.PrefixPlexLibrary, lib.Key)),
		})
	}
	rows = append(rows, backRow(appmodels.CallbackPlexMenu))
	return keyboard(rows...)
}

// BuildLibraryKeyboard creates the actions of one Plex library
func BuildLibraryKeyboard(key string) *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{button("📂 Browse", appmodels.Token(appmodels.PrefixPlexBrowse, key))},
		[]models.InlineKeyboardButton{
			button("🔍 Scan", appmodels.Token(appmodels.PrefixPlexScan, key)),
			button("🔄 Refresh metadata", appmodels.Token(appmodels.PrefixPlexMeta, key)),
		},
		[]models.InlineKeyboardButton{button("🗑 Empty trash", appmodels.Token(appmodels.PrefixPlexTrash, key))},
		backRow(appmodels.CallbackPlexLibraries),
	)
}

// PlexItemToken returns the token that opens item: shows open their
// seasons, seasons their episodes, anything else its detail screen
func PlexItemToken(item appmodels.PlexItem) string {
	switch item.Type {
	case "show":
		return appmodels.Token(appmodels.PrefixPlexShow, item.RatingKey)
	case "season":
		return appmodels.Token(appmodels.PrefixPlexSeason, item.RatingKey)
	}
	return appmodels.Token(appmodels.PrefixPlexItem, item.RatingKey)
}

// BuildPlexItemsKeyboard creates one page of Plex item buttons
func BuildPlexItemsKeyboard(surface, back string, page pager.Page[appmodels.PlexItem]) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(page.Items)+2)
	for _, item := range page.Items {
		if !appmodels.PayloadPattern.MatchString(item.RatingKey) {
			continue
		}
		rows = append(rows, []models.InlineKeyboardButton{button(label(PlexLabel(item)), PlexItemToken(item))})
	}
	rows = append(rows, pager.Controls(surface, page.Number, page.Total, back)...)
	return keyboard(rows...)
}

// BuildPlexItemKeyboard creates the actions of one Plex item
func BuildPlexItemKeyboard(item appmodels.PlexItem, back string) *models.InlineKeyboardMarkup {
	return keyboard(
		[]models.InlineKeyboardButton{button("🔄 Refresh metadata", appmodels.Token(appmodels.PrefixPlexRefresh, item.RatingKey))},
		backRow(back),
	)
}

// BuildSessionsKeyboard creates one page of session stop buttons
func BuildSessionsKeyboard(page pager.Page[appmodels.PlexSession]) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(page.Items)+2)
	for _, s := range page.Items {
		if !appmodels.PayloadPattern.MatchString(s.ID) {
			continue
		}
		rows = append(rows, []models.InlineKeyboardButton{
			button(label("⏹ Stop "+s.Title), appmodels.Token(appmodels.PrefixPlexStop, s.ID)),
		})
	}
	rows = append(rows, pager.Controls(appmodels.SurfacePlexSessions, page.Number, page.Total, appmodels.CallbackPlexMenu)...)
	return keyboard(rows...)
}

// BuildBackKeyboard creates a keyboard with a single back button
func BuildBackKeyboard(token string) *models.InlineKeyboardMarkup {
	return keyboard(backRow(token))
}
