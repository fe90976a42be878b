package db

import (
	"fmt"

	"github.com/tgienger/academiaflow/internal/filter"
)

const (
	keyWindow   = "view.window"
	keyCategory = "view.category"
)

// ViewPrefs is the sidebar selection restored on the next launch
type ViewPrefs struct {
	Window   filter.Window
	Category filter.CategorySelector
}

// LoadViewPrefs reads the saved sidebar selection. Missing or unreadable
// values fall back to All Tasks / all categories.
func (db *DB) LoadViewPrefs() (ViewPrefs, error) {
	prefs := ViewPrefs{Window: filter.WindowAll, Category: filter.AnyCategory()}

	w, err := db.GetSetting(keyWindow)
	if err != nil {
		return prefs, fmt.Errorf("load window: %w", err)
	}
	if w != "" {
		if parsed, err := filter.ParseWindow(w); err == nil {
			prefs.Window = parsed
		}
	}

	c, err := db.GetSetting(keyCategory)
	if err != nil {
		return prefs, fmt.Errorf("load category: %w", err)
	}
	if parsed, err := filter.ParseCategorySelector(c); err == nil {
		prefs.Category = parsed
	}
	return prefs, nil
}

// SaveViewPrefs stores the sidebar selection
func (db *DB) SaveViewPrefs(p ViewPrefs) error {
	if err := db.SetSetting(keyWindow, p.Window.String()); err != nil {
		return fmt.Errorf("save window: %w", err)
	}
	if err := db.SetSetting(keyCategory, p.Category.String()); err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}
