package flow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/hryarih32/mediacatalogbot/internal/service"
	"github.com/hryarih32/mediacatalogbot/pkg/models"
)

// Sheet fields toggled by the addf_ buttons
const (
	FieldProfile = "profile"
	FieldFolder  = "folder"
	FieldMonitor = "monitor"
	FieldSearch  = "search"
)

// SheetChoices are the values a sheet can cycle through
type SheetChoices struct {
	Profiles []models.QualityProfile
	Folders  []models.RootFolder
	Tags     []models.Tag
	Monitors []string
}

// AddSheet is the customization of one pending add request
type AddSheet struct {
	ID      string
	Service string
	Item    models.CatalogItem
	Choices SheetChoices
	Options models.AddOptions
}

// ProfileName returns the name of the selected profile
func (a AddSheet) ProfileName() string {
	for _, p := range a.Choices.Profiles {
		if p.ID == a.Options.ProfileID {
			return p.Name
		}
	}
	return "-"
}

// HasTag reports whether tag id is selected
func (a AddSheet) HasTag(id int64) bool {
	return slices.Contains(a.Options.Tags, id)
}

// StartSheet creates the add sheet of chatID for item, replacing any
// earlier one. Options start at the first profile, folder and monitor
// value with search on add enabled.
func (s *Store) StartSheet(chatID int64, svc string, item models.CatalogItem, choices SheetChoices) AddSheet {
	sheet := &AddSheet{
		ID:      newSessionID(),
		Service: svc,
		Item:    item,
		Choices: choices,
		Options: models.AddOptions{SearchNow: true},
	}
	if len(choices.Profiles) > 0 {
		sheet.Options.ProfileID = choices.Profiles[0].ID
	}
	if len(choices.Folders) > 0 {
		sheet.Options.RootFolder = choices.Folders[0].Path
	}
	if len(choices.Monitors) > 0 {
		sheet.Options.Monitor = choices.Monitors[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[chatID] = sheet
	return sheet.clone()
}

// Sheet returns the add sheet with session id sid
func (s *Store) Sheet(chatID int64, sid string) (AddSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.sheet(chatID, sid)
	if err != nil {
		return AddSheet{}, err
	}
	return sheet.clone(), nil
}

// Toggle advances one field of the sheet
func (s *Store) Toggle(chatID int64, sid, field string) (AddSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.sheet(chatID, sid)
	if err != nil {
		return AddSheet{}, err
	}

	opts := &sheet.Options
	switch field {
	case FieldProfile:
		i := slices.IndexFunc(sheet.Choices.Profiles, func(p models.QualityProfile) bool { return p.ID == opts.ProfileID })
		if n := len(sheet.Choices.Profiles); n > 0 {
			opts.ProfileID = sheet.Choices.Profiles[(i+1)%n].ID
		}
	case FieldFolder:
		i := slices.IndexFunc(sheet.Choices.Folders, func(f models.RootFolder) bool { return f.Path == opts.RootFolder })
		if n := len(sheet.Choices.Folders); n > 0 {
			opts.RootFolder = sheet.Choices.Folders[(i+1)%n].Path
		}
	case FieldMonitor:
		i := slices.Index(sheet.Choices.Monitors, opts.Monitor)
		if n := len(sheet.Choices.Monitors); n > 0 {
			opts.Monitor = sheet.Choices.Monitors[(i+1)%n]
		}
	case FieldSearch:
		opts.SearchNow = !opts.SearchNow
	default:
		return AddSheet{}, fmt.Errorf("unknown sheet field %q", field)
	}
	return sheet.clone(), nil
}

// ToggleTag selects or deselects tag id
func (s *Store) ToggleTag(chatID int64, sid string, id int64) (AddSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.sheet(chatID, sid)
	if err != nil {
		return AddSheet{}, err
	}
	if !slices.ContainsFunc(sheet.Choices.Tags, func(t models.Tag) bool { return t.ID == id }) {
		return AddSheet{}, fmt.Errorf("unknown tag %d", id)
	}

	if i := slices.Index(sheet.Options.Tags, id); i >= 0 {
		sheet.Options.Tags = slices.Delete(sheet.Options.Tags, i, i+1)
	} else {
		sheet.Options.Tags = append(sheet.Options.Tags, id)
		slices.Sort(sheet.Options.Tags)
	}
	return sheet.clone(), nil
}

// Finish returns the final sheet and clears it
func (s *Store) Finish(chatID int64, sid string) (AddSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.sheet(chatID, sid)
	if err != nil {
		return AddSheet{}, err
	}
	delete(s.sheets, chatID)
	return sheet.clone(), nil
}

// sheet must be called with s.mu held
func (s *Store) sheet(chatID int64, sid string) (*AddSheet, error) {
	sheet, ok := s.sheets[chatID]
	if !ok || sheet.ID != sid {
		return nil, &service.Error{Kind: service.KindExpired, Op: "add", Reason: "this add request is no longer open"}
	}
	return sheet, nil
}

func (a *AddSheet) clone() AddSheet {
	c := *a
	c.Options.Tags = slices.Clone(a.Options.Tags)
	return c
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
