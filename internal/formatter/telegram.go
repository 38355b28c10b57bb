// Package formatter renders screens and status lines as Telegram HTML
package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/hryarih32/mediacatalogbot/internal/config"
	"github.com/hryarih32/mediacatalogbot/internal/flow"
	"github.com/hryarih32/mediacatalogbot/internal/pager"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// TelegramFormatter formats screens for Telegram
type TelegramFormatter struct {
	maxLength int
}

// NewTelegramFormatter creates a new Telegram formatter
func NewTelegramFormatter() *TelegramFormatter {
	return &TelegramFormatter{
		maxLength: 4000, // Leave room for markup
	}
}

// ServiceName returns the display name of a service
func ServiceName(service string) string {
	switch service {
	case models.ServiceRadarr:
		return "Radarr"
	case models.ServiceSonarr:
		return "Sonarr"
	case models.ServicePlex:
		return "Plex"
	case models.ServicePower:
		return "PC power"
	case models.ServiceMedia:
		return "PC media"
	}
	return service
}

// MainMenu formats the root screen
func (f *TelegramFormatter) MainMenu(features models.Features) string {
	var sb strings.Builder
	sb.WriteString("<b>🏠 Media control</b>\n\n")
	for _, s := range []struct {
		name string
		ok   bool
	}{
		{models.ServiceRadarr, features.Radarr},
		{models.ServiceSonarr, features.Sonarr},
		{models.ServicePlex, features.Plex},
		{models.ServicePower, features.Power},
		{models.ServiceMedia, features.Media},
	} {
		mark := "🔴"
		if s.ok {
			mark = "🟢"
		}
		fmt.Fprintf(&sb, "%s %s\n", mark, ServiceName(s.name))
	}
	return sb.String()
}

// ServiceMenu formats the root screen of one service
func (f *TelegramFormatter) ServiceMenu(service string) string {
	switch service {
	case models.ServiceRadarr:
		return "<b>🎬 Radarr</b>\nMovies: queue, library maintenance and new additions."
	case models.ServiceSonarr:
		return "<b>📺 Sonarr</b>\nSeries: queue, missing episodes, library maintenance and new additions."
	case models.ServicePlex:
		return "<b>🍿 Plex</b>\nLibraries, playback sessions and server maintenance."
	}
	return "<b>" + f.escapeHTML(ServiceName(service)) + "</b>"
}

// PCMenu formats the host control screen
func (f *TelegramFormatter) PCMenu(features models.Features, armed models.PowerAction) string {
	var sb strings.Builder
	sb.WriteString("<b>🖥 PC control</b>\n")
	if features.Media {
		sb.WriteString("Media keys act on the active player.\n")
	}
	if features.Media && !features.Volume {
		sb.WriteString("<i>Volume control is not available on this host.</i>\n")
	}
	if features.Power {
		sb.WriteString("Shutdown and restart need a second press to confirm.\n")
	}
	if armed != "" {
		fmt.Fprintf(&sb, "\n⚠️ <b>%s</b> is waiting for confirmation.", strings.ToUpper(string(armed)))
	}
	return sb.String()
}

// Queue formats one page of a download queue
func (f *TelegramFormatter) Queue(service string, page pager.Page[models.QueueItem]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📥 %s queue</b> (%d)\n\n", ServiceName(service), page.Count)
	if page.Count == 0 {
		sb.WriteString("<i>The queue is empty.</i>")
		return sb.String()
	}
	for i, item := range page.Items {
		fmt.Fprintf(&sb, "%d. %s\n    %s · %.0f%%", page.Offset+i+1, f.escapeHTML(item.Title), f.escapeHTML(item.Status), item.Progress)
		if item.TimeLeft != "" {
			fmt.Fprintf(&sb, " · %s left", f.escapeHTML(item.TimeLeft))
		}
		sb.WriteString("\n")
	}
	return f.truncate(sb.String(), f.maxLength)
}

// QueueItem formats the detail screen of a queue item
func (f *TelegramFormatter) QueueItem(service string, item models.QueueItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n\n", f.escapeHTML(item.Title))
	fmt.Fprintf(&sb, "<b>Release:</b> %s\n", f.escapeHTML(item.Release))
	fmt.Fprintf(&sb, "<b>Status:</b> %s (%.1f%%)\n", f.escapeHTML(item.Status), item.Progress)
	if item.TimeLeft != "" {
		fmt.Fprintf(&sb, "<b>Time left:</b> %s\n", f.escapeHTML(item.TimeLeft))
	}
	if item.Client != "" {
		fmt.Fprintf(&sb, "<b>Client:</b> %s (%s)\n", f.escapeHTML(item.Client), f.escapeHTML(item.Protocol))
	}
	for _, m := range item.Messages {
		fmt.Fprintf(&sb, "⚠️ %s\n", f.escapeHTML(m))
	}
	fmt.Fprintf(&sb, "\n<i>Removing deletes the download from %s and the client.</i>", ServiceName(service))
	return f.truncate(sb.String(), f.maxLength)
}

// Wanted formats one page of missing episodes
func (f *TelegramFormatter) Wanted(page pager.Page[models.WantedEpisode]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>🔎 Missing episodes</b> (%d)\n\n", page.Count)
	if page.Count == 0 {
		sb.WriteString("<i>Nothing is missing.</i>")
		return sb.String()
	}
	for i, ep := range page.Items {
		fmt.Fprintf(&sb, "%d. %s\n", page.Offset+i+1, f.escapeHTML(EpisodeLabel(ep)))
		if !ep.AirDate.IsZero() {
			fmt.Fprintf(&sb, "    aired %s\n", ep.AirDate.Format("2006-01-02"))
		}
	}
	sb.WriteString("\nPress an episode to search for it.")
	return f.truncate(sb.String(), f.maxLength)
}

// EpisodeLabel formats "Series S01E02 Title"
func EpisodeLabel(ep models.WantedEpisode) string {
	label := fmt.Sprintf("%s S%02dE%02d", ep.SeriesTitle, ep.SeasonNumber, ep.EpisodeNumber)
	if ep.Title != "" {
		label += " " + ep.Title
	}
	return label
}

// Prompt formats the screen of a flow waiting for text
func (f *TelegramFormatter) Prompt(kind models.FlowKind, target string) string {
	switch kind {
	case models.FlowAddMovie:
		return "<b>➕ Add movie</b>\n\nSend a movie title to search for."
	case models.FlowAddShow:
		return "<b>➕ Add series</b>\n\nSend a series title to search for."
	case models.FlowAddDownload:
		return fmt.Sprintf("<b>⬇️ Add download</b>\n\nSend a magnet link or a .torrent/.nzb URL.\nIt is handed to <b>%s</b>.", ServiceName(target))
	case models.FlowPlexSearch:
		return "<b>🔍 Plex search</b>\n\nSend what to search for."
	}
	return ""
}

// SearchResults formats one page of catalog lookup results
func (f *TelegramFormatter) SearchResults(results flow.Results, page pager.Page[models.CatalogItem]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>🔍 %s results for</b> <i>%s</i> (%d)\n\n", ServiceName(results.Service), f.escapeHTML(results.Term), page.Count)
	if page.Count == 0 {
		sb.WriteString("<i>Nothing found.</i>")
		return sb.String()
	}
	for i, item := range page.Items {
		fmt.Fprintf(&sb, "%d. %s", page.Offset+i+1, f.escapeHTML(CatalogLabel(item)))
		if item.InLibrary {
			sb.WriteString(" ✅")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n✅ already in library")
	return f.truncate(sb.String(), f.maxLength)
}

// CatalogLabel formats "Title (Year)"
func CatalogLabel(item models.CatalogItem) string {
	if item.Year > 0 {
		return fmt.Sprintf("%s (%d)", item.Title, item.Year)
	}
	return item.Title
}

// Sheet formats an add sheet
func (f *TelegramFormatter) Sheet(sheet flow.AddSheet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>➕ %s</b>\n", f.escapeHTML(CatalogLabel(sheet.Item)))
	if sheet.Item.Seasons > 0 {
		fmt.Fprintf(&sb, "%d seasons\n", sheet.Item.Seasons)
	}
	if sheet.Item.Overview != "" {
		fmt.Fprintf(&sb, "\n<i>%s</i>\n", f.escapeHTML(f.truncatePlain(sheet.Item.Overview, 400)))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "<b>Profile:</b> %s\n", f.escapeHTML(sheet.ProfileName()))
	fmt.Fprintf(&sb, "<b>Root folder:</b> %s\n", f.escapeHTML(orDash(sheet.Options.RootFolder)))
	fmt.Fprintf(&sb, "<b>Monitor:</b> %s\n", f.escapeHTML(orDash(sheet.Options.Monitor)))
	var tags []string
	for _, t := range sheet.Choices.Tags {
		if sheet.HasTag(t.ID) {
			tags = append(tags, t.Label)
		}
	}
	fmt.Fprintf(&sb, "<b>Tags:</b> %s\n", f.escapeHTML(orDash(strings.Join(tags, ", "))))
	fmt.Fprintf(&sb, "<b>Search on add:</b> %s\n", yesNo(sheet.Options.SearchNow))
	fmt.Fprintf(&sb, "\nAdd to %s?", ServiceName(sheet.Service))
	return sb.String()
}

// Libraries formats the Plex library list
func (f *TelegramFormatter) Libraries(libs []models.Library) string {
	var sb strings.Builder
	sb.WriteString("<b>📚 Plex libraries</b>\n\n")
	if len(libs) == 0 {
		sb.WriteString("<i>No libraries.</i>")
	}
	for _, lib := range libs {
		fmt.Fprintf(&sb, "• %s <i>(%s)</i>\n", f.escapeHTML(lib.Title), f.escapeHTML(lib.Type))
	}
	return sb.String()
}

// Library formats the screen of one Plex library
func (f *TelegramFormatter) Library(lib models.Library) string {
	return fmt.Sprintf("<b>📚 %s</b>\nType: %s\n\nScan looks for new files, refresh re-downloads metadata.",
		f.escapeHTML(lib.Title), f.escapeHTML(lib.Type))
}

// PlexItems formats one page of Plex items under title
func (f *TelegramFormatter) PlexItems(title string, page pager.Page[models.PlexItem]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b> (%d)\n\n", f.escapeHTML(title), page.Count)
	if page.Count == 0 {
		sb.WriteString("<i>Nothing here.</i>")
		return sb.String()
	}
	for i, item := range page.Items {
		fmt.Fprintf(&sb, "%d. %s\n", page.Offset+i+1, f.escapeHTML(PlexLabel(item)))
	}
	return f.truncate(sb.String(), f.maxLength)
}

// PlexLabel formats a Plex item for lists and buttons
func PlexLabel(item models.PlexItem) string {
	switch item.Type {
	case "episode":
		label := fmt.Sprintf("E%02d %s", item.Index, item.Title)
		if item.ShowTitle != "" {
			label = item.ShowTitle + " · " + label
		}
		return label
	case "season":
		return item.Title
	}
	if item.Year > 0 {
		return fmt.Sprintf("%s (%d)", item.Title, item.Year)
	}
	return item.Title
}

// PlexItem formats the detail screen of a Plex item
func (f *TelegramFormatter) PlexItem(item models.PlexItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>%s</b>\n", f.escapeHTML(PlexLabel(item)))
	fmt.Fprintf(&sb, "<i>%s</i>\n", f.escapeHTML(item.Type))
	if item.Duration > 0 {
		fmt.Fprintf(&sb, "Duration: %s\n", item.Duration.Round(time.Minute))
	}
	if item.LeafCount > 0 {
		fmt.Fprintf(&sb, "Episodes: %d\n", item.LeafCount)
	}
	if !item.AddedAt.IsZero() {
		fmt.Fprintf(&sb, "Added: %s\n", item.AddedAt.Format("2006-01-02"))
	}
	if item.Summary != "" {
		fmt.Fprintf(&sb, "\n%s", f.escapeHTML(f.truncatePlain(item.Summary, 800)))
	}
	return sb.String()
}

// Sessions formats one page of playback sessions
func (f *TelegramFormatter) Sessions(page pager.Page[models.PlexSession]) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>▶️ Now playing</b> (%d)\n\n", page.Count)
	if page.Count == 0 {
		sb.WriteString("<i>Nobody is watching.</i>")
		return sb.String()
	}
	for i, s := range page.Items {
		fmt.Fprintf(&sb, "%d. %s\n    %s on %s · %s · %.0f%%\n", page.Offset+i+1,
			f.escapeHTML(s.Title), f.escapeHTML(s.User), f.escapeHTML(s.Player), f.escapeHTML(s.State), s.Progress)
	}
	return f.truncate(sb.String(), f.maxLength)
}

// ServerInfo formats the Plex server summary
func (f *TelegramFormatter) ServerInfo(info models.ServerInfo) string {
	return fmt.Sprintf("<b>ℹ️ %s</b>\nVersion: %s\nPlatform: %s\nSessions: %d (transcoding %d)",
		f.escapeHTML(info.Name), f.escapeHTML(info.Version), f.escapeHTML(info.Platform), info.Sessions, info.Transcode)
}

// Settings formats the active settings
func (f *TelegramFormatter) Settings(settings []config.Setting) string {
	var sb strings.Builder
	sb.WriteString("<b>⚙️ Settings</b>\n\n")
	for _, s := range settings {
		fmt.Fprintf(&sb, "<b>%s:</b> %s\n", f.escapeHTML(s.Name), f.escapeHTML(s.Value))
	}
	sb.WriteString("\n<i>Edit the env file and press Reload to apply changes.</i>")
	return sb.String()
}

// HealthLine is one service in the health summary
type HealthLine struct {
	Service string
	Detail  string
	OK      bool
}

// Health formats the /status summary
func (f *TelegramFormatter) Health(lines []HealthLine, recent []*models.ActionRecord) string {
	var sb strings.Builder
	sb.WriteString("<b>📊 Status</b>\n")
	for _, l := range lines {
		mark := "🔴"
		if l.OK {
			mark = "🟢"
		}
		fmt.Fprintf(&sb, "%s %s: %s\n", mark, ServiceName(l.Service), f.escapeHTML(l.Detail))
	}
	if len(recent) > 0 {
		sb.WriteString("\n<b>Recent actions</b>\n")
		for _, r := range recent {
			fmt.Fprintf(&sb, "%s %s: %s\n", r.CreatedAt.Format("01-02 15:04"), f.escapeHTML(r.Action), f.escapeHTML(r.Outcome))
		}
	}
	return f.truncate(sb.String(), f.maxLength)
}

// escapeHTML escapes HTML special characters for Telegram
func (f *TelegramFormatter) escapeHTML(s string) string {
	return EscapeHTML(s)
}

// EscapeHTML escapes HTML special characters for Telegram
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// truncate truncates formatted text to maxLen characters
func (f *TelegramFormatter) truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	cut := string(runes[:maxLen])
	// Do not leave a dangling entity or tag
	if i := strings.LastIndexAny(cut, "&<"); i >= 0 && !strings.ContainsAny(cut[i:], ";>") {
		cut = cut[:i]
	}
	if i := strings.LastIndex(cut, "\n"); i > 0 {
		cut = cut[:i]
	}
	return cut + "\n<i>… (truncated)</i>"
}

// truncatePlain truncates unformatted text to maxLen characters
func (f *TelegramFormatter) truncatePlain(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
