package theme

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/posterforge/posterforge/pkg/errors"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func writeTheme(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "blueprint", `{
		"name": "Blueprint",
		"bg": "#0A1931",
		"text": "#E8F1F2",
		"water": "#1A3A5A"
	}`)

	s := NewStore(dir, quietLogger())

	th, err := s.Load("blueprint")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if th.Background != "#0A1931" {
		t.Errorf("Background = %s", th.Background)
	}
	// Unset keys back-filled from the default profile.
	if th.Parks != Default().Parks {
		t.Errorf("Parks not defaulted: %s", th.Parks)
	}
}

func TestStoreLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "noir", `{"bg": "#000000"}`)

	s := NewStore(dir, quietLogger())

	_, err := s.Load("does-not-exist")
	if err == nil {
		t.Fatal("Load should fail for unknown theme")
	}
	if !errors.IsThemeNotFound(err) {
		t.Errorf("expected ThemeNotFound, got %v", err)
	}

	var tnf *errors.ThemeNotFoundError
	if !stderrors.As(err, &tnf) {
		t.Fatalf("error type: %T", err)
	}
	if tnf.Name != "does-not-exist" {
		t.Errorf("Name = %s", tnf.Name)
	}
	if !reflect.DeepEqual(tnf.Available, []string{"noir"}) {
		t.Errorf("Available = %v", tnf.Available)
	}
}

func TestStoreLoadRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "noir", `{"bg": "#000000"}`)
	// A parseable theme file one level up must stay unreachable.
	if err := os.WriteFile(filepath.Join(dir, "..", "outside.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir, quietLogger())

	for _, name := range []string{"../outside", "..", "a/b", `a\b`, "no.dots", "", "sp ace"} {
		if _, err := s.Load(name); !errors.IsThemeNotFound(err) {
			t.Errorf("Load(%q) = %v, want ThemeNotFound", name, err)
		}
	}

	// Ordinary identifier characters still resolve.
	writeTheme(t, dir, "mid_night-2", `{"bg": "#101020"}`)
	if _, err := s.Load("mid_night-2"); err != nil {
		t.Errorf("Load(mid_night-2) error: %v", err)
	}
}

func TestStoreLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "broken", `{not json`)

	s := NewStore(dir, quietLogger())

	// Malformed stored data is treated identically to not found.
	_, err := s.Load("broken")
	if !errors.IsThemeNotFound(err) {
		t.Errorf("expected ThemeNotFound for malformed theme, got %v", err)
	}
}

func TestStoreLoadBuiltinDefault(t *testing.T) {
	// Default name resolves to the built-in profile when no file exists.
	s := NewStore(t.TempDir(), quietLogger())

	th, err := s.Load(DefaultName)
	if err != nil {
		t.Fatalf("Load(%s) error: %v", DefaultName, err)
	}
	if !reflect.DeepEqual(th, Default()) {
		t.Errorf("built-in default mismatch: %+v", th)
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "zen", `{}`)
	writeTheme(t, dir, "blueprint", `{}`)
	writeTheme(t, dir, "noir", `{}`)
	// Non-JSON files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(dir, quietLogger())

	got := s.List()
	want := []string{"blueprint", "noir", "zen"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope"), quietLogger())

	got := s.List()
	if got == nil || len(got) != 0 {
		t.Errorf("List on missing dir = %v, want empty slice", got)
	}
}

func TestStoreAll(t *testing.T) {
	dir := t.TempDir()
	writeTheme(t, dir, "ok", `{"bg": "#111111"}`)
	writeTheme(t, dir, "broken", `{oops`)

	s := NewStore(dir, quietLogger())

	all := s.All()
	if len(all) != 1 {
		t.Fatalf("All = %d themes, want 1 (broken skipped)", len(all))
	}
	if all[0].ID != "ok" || all[0].Background != "#111111" {
		t.Errorf("unexpected details: %+v", all[0])
	}
}
