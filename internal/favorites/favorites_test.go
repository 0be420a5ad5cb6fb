package favorites

import (
	"encoding/json"
	"reflect"
	"testing"
)

func snapshotOf(t *testing.T, raw string) Snapshot {
	t.Helper()
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("Unmarshal snapshot: %v", err)
	}
	return snap
}

func ids(v View) []string {
	out := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		out = append(out, item.ID)
	}
	return out
}

func TestRender_SortsCaseInsensitively(t *testing.T) {
	snap := snapshotOf(t, `{
		"a": {"nickname": "bob", "url": "http://bob"},
		"b": {"nickname": "Alice", "url": "http://alice"}
	}`)

	view := Render(snap)
	if view.Empty {
		t.Fatalf("view.Empty = true, want items")
	}
	if got := ids(view); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Fatalf("order = %v, want [b a]", got)
	}
	if view.Items[0].Name != "Alice" || view.Items[1].Name != "bob" {
		t.Fatalf("names = %q, %q, want Alice, bob", view.Items[0].Name, view.Items[1].Name)
	}
}

func TestRender_TiesBrokenByID(t *testing.T) {
	snap := snapshotOf(t, `{
		"z": {"nickname": "Jazz", "url": "http://1"},
		"m": {"nickname": "jazz", "url": "http://2"},
		"c": {"nickname": "JAZZ", "url": "http://3"},
		"q": {"nickname": "Blues", "url": "http://4"}
	}`)

	view := Render(snap)
	if got := ids(view); !reflect.DeepEqual(got, []string{"q", "c", "m", "z"}) {
		t.Fatalf("order = %v, want [q c m z]", got)
	}
}

func TestRender_IsPure(t *testing.T) {
	snap := snapshotOf(t, `{
		"1": {"nickname": "Kiss FM", "url": "http://kiss"},
		"2": {"nickname": "ambient", "url": "http://ambient"},
		"3": {"nickname": "Classic", "url": "http://classic"},
		"4": "http://legacy",
		"5": {"url": "http://nameless"}
	}`)

	first := Render(snap)
	for i := 0; i < 20; i++ {
		if again := Render(snap); !reflect.DeepEqual(first, again) {
			t.Fatalf("render %d differs:\n%#v\n%#v", i, first, again)
		}
	}
}

func TestRender_EmptyShowsPlaceholder(t *testing.T) {
	cases := map[string]Snapshot{
		"nil":           nil,
		"empty":         {},
		"all malformed": snapshotOf(t, `{"x": {"nickname": "no url"}}`),
	}
	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			view := Render(snap)
			if !view.Empty || view.Placeholder != Placeholder {
				t.Fatalf("view = %#v, want placeholder", view)
			}
			if view.Items != nil {
				t.Fatalf("Items = %#v, want nil", view.Items)
			}
		})
	}
}

func TestRender_SkipsMalformedEntries(t *testing.T) {
	snap := snapshotOf(t, `{
		"good":      {"nickname": "Good", "url": "http://good"},
		"no-url":    {"nickname": "Broken"},
		"no-name":   {"url": "http://anon"},
		"bad-name":  {"nickname": 42, "url": "http://x"},
		"blank-url": {"nickname": "Blank", "url": "  "},
		"null":      null,
		"number":    7
	}`)

	view := Render(snap)
	if got := ids(view); !reflect.DeepEqual(got, []string{"good"}) {
		t.Fatalf("rendered = %v, want [good]", got)
	}
	wantSkipped := []string{"bad-name", "blank-url", "no-name", "no-url", "null", "number"}
	if !reflect.DeepEqual(view.Skipped, wantSkipped) {
		t.Fatalf("Skipped = %v, want %v", view.Skipped, wantSkipped)
	}
}

func TestRender_BlankNicknameShowsPlaceholder(t *testing.T) {
	snap := snapshotOf(t, `{
		"a": {"nickname": "", "url": "https://a"},
		"b": {"nickname": "   ", "url": "https://b"},
		"c": {"nickname": null, "url": "https://c"},
		"d": {"nickname": 5, "url": "https://d"}
	}`)

	view := Render(snap)
	if got := ids(view); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("ids = %v, want [a b c]", got)
	}
	for _, item := range view.Items {
		if item.Name != "(No Nickname)" {
			t.Fatalf("item %s Name = %q, want (No Nickname)", item.ID, item.Name)
		}
	}
	if !reflect.DeepEqual(view.Skipped, []string{"d"}) {
		t.Fatalf("Skipped = %v, want [d]", view.Skipped)
	}
}

func TestRender_LegacyShapes(t *testing.T) {
	snap := snapshotOf(t, `{
		"Rock Antenne": "https://rock",
		"uuid-1":       {"id": "chill", "url": "https://chill"},
		"uuid-2":       {"nickname": "", "url": "https://unnamed"}
	}`)

	view := Render(snap)
	if got := ids(view); !reflect.DeepEqual(got, []string{"uuid-2", "uuid-1", "Rock Antenne"}) {
		t.Fatalf("order = %v, want [uuid-2 uuid-1 Rock Antenne]", got)
	}

	unnamed := view.Items[0]
	if unnamed.Name != "(No Nickname)" || unnamed.Legacy {
		t.Fatalf("unnamed item = %#v, want placeholder name, not legacy", unnamed)
	}
	chill := view.Items[1]
	if chill.Name != "chill" || !chill.Legacy || chill.URL != "https://chill" {
		t.Fatalf("id-shaped item = %#v, want legacy chill", chill)
	}
	rock := view.Items[2]
	if rock.Name != "Rock Antenne" || !rock.Legacy || rock.Title != "https://rock" {
		t.Fatalf("string-shaped item = %#v, want legacy Rock Antenne", rock)
	}
	if rock.DeleteLabel != "Delete Favorite: Rock Antenne" {
		t.Fatalf("DeleteLabel = %q", rock.DeleteLabel)
	}
}

func TestView_Find(t *testing.T) {
	view := Render(snapshotOf(t, `{"a": {"nickname": "A", "url": "http://a"}}`))
	if item, ok := view.Find("a"); !ok || item.URL != "http://a" {
		t.Fatalf("Find(a) = %#v, %v", item, ok)
	}
	if _, ok := view.Find("missing"); ok {
		t.Fatalf("Find(missing) = true, want false")
	}
}
