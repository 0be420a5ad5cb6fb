// Package favorites turns a backend favorites snapshot into an ordered list of
// renderable items. Everything here is a pure function of the snapshot.
package favorites

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Snapshot is the mapping of favorite id to its raw record, exactly as the
// backend pushed it. Entries are decoded lazily so one bad entry cannot spoil
// the rest.
type Snapshot map[string]json.RawMessage

// Record is a decoded favorite. Legacy is set for the older shape where the id
// doubles as the nickname.
type Record struct {
	ID       string
	Nickname string
	URL      string
	Legacy   bool
}

// Placeholder is shown instead of an empty list.
const Placeholder = "No favorites saved."

const noNickname = "(No Nickname)"

// Item is one rendered favorite row.
type Item struct {
	ID          string
	Name        string
	URL         string
	Title       string
	DeleteLabel string
	Legacy      bool
}

// View is the rendered favorites list. When Empty is set, Placeholder must be
// shown and Items is nil.
type View struct {
	Items       []Item
	Empty       bool
	Placeholder string
	Skipped     []string
}

// Find returns the item with the given id from this view.
func (v View) Find(id string) (Item, bool) {
	for _, item := range v.Items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Len returns the number of rendered items.
func (v View) Len() int {
	return len(v.Items)
}

// Render produces the ordered item list for snap. Items are sorted by display
// name, case-insensitively, with ties broken by id. Malformed entries are
// left out and their ids reported in Skipped.
func Render(snap Snapshot) View {
	records, skipped := Parse(snap)
	if len(records) == 0 {
		return View{Empty: true, Placeholder: Placeholder, Skipped: skipped}
	}

	sortRecords(records)

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		name := displayName(rec)
		items = append(items, Item{
			ID:          rec.ID,
			Name:        name,
			URL:         rec.URL,
			Title:       rec.URL,
			DeleteLabel: "Delete Favorite: " + name,
			Legacy:      rec.Legacy,
		})
	}
	return View{Items: items, Skipped: skipped}
}

// Parse decodes every entry of snap. Records come back in no particular order;
// skipped ids are sorted.
func Parse(snap Snapshot) ([]Record, []string) {
	var (
		records []Record
		skipped []string
	)
	for id, raw := range snap {
		rec, ok := parseEntry(id, raw)
		if !ok {
			skipped = append(skipped, id)
			continue
		}
		records = append(records, rec)
	}
	slices.Sort(skipped)
	return records, skipped
}

// parseEntry accepts three shapes:
//
//	{"nickname":"Jazz FM","url":"https://..."}  current shape
//	{"id":"Jazz FM","url":"https://..."}        legacy, id doubles as nickname
//	"https://..."                               legacy, map key is the nickname
func parseEntry(id string, raw json.RawMessage) (Record, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || strings.TrimSpace(id) == "" {
		return Record{}, false
	}

	if trimmed[0] == '"' {
		var url string
		if json.Unmarshal(trimmed, &url) != nil || strings.TrimSpace(url) == "" {
			return Record{}, false
		}
		return Record{ID: id, Nickname: id, URL: strings.TrimSpace(url), Legacy: true}, true
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(trimmed, &fields) != nil || fields == nil {
		return Record{}, false
	}

	url, ok := stringField(fields, "url")
	if !ok || strings.TrimSpace(url) == "" {
		return Record{}, false
	}
	rec := Record{ID: id, URL: strings.TrimSpace(url)}

	// A blank or null nickname still names a rich entry; it renders as noNickname.
	if nickname, ok := stringField(fields, "nickname"); ok {
		rec.Nickname = strings.TrimSpace(nickname)
		return rec, true
	}
	if _, present := fields["nickname"]; present {
		return Record{}, false
	}
	if legacyID, ok := stringField(fields, "id"); ok && strings.TrimSpace(legacyID) != "" {
		rec.Nickname = strings.TrimSpace(legacyID)
		rec.Legacy = true
		return rec, true
	}
	return Record{}, false
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

func displayName(rec Record) string {
	if rec.Nickname == "" {
		return noNickname
	}
	return rec.Nickname
}

func sortRecords(records []Record) {
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortFunc(records, func(a, b Record) int {
		if c := col.CompareString(a.Nickname, b.Nickname); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
