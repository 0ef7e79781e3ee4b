package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists dashboards, widgets, data sources, and the per-widget
// data cache.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite database at path and migrates the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.AutoMigrate(&Dashboard{}, &Widget{}, &DataSource{}, &WidgetDataCache{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveDashboard creates or updates a dashboard.
func (s *Store) SaveDashboard(d *Dashboard) error {
	return s.db.Save(d).Error
}

// GetDashboard looks up a dashboard by ID.
func (s *Store) GetDashboard(id string) (*Dashboard, error) {
	var d Dashboard
	if err := s.db.First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDashboards returns all dashboards ordered by creation time.
func (s *Store) ListDashboards() ([]Dashboard, error) {
	var out []Dashboard
	err := s.db.Order("created_at").Find(&out).Error
	return out, err
}

// SaveWidget creates or updates a widget.
func (s *Store) SaveWidget(w *Widget) error {
	return s.db.Save(w).Error
}

// GetWidget looks up a widget by ID.
func (s *Store) GetWidget(id string) (*Widget, error) {
	var w Widget
	if err := s.db.First(&w, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// DeleteWidget removes a widget and its cached data.
func (s *Store) DeleteWidget(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&WidgetDataCache{}, "widget_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Widget{}, "id = ?", id).Error
	})
}

// WidgetsWithCache returns a dashboard's widgets joined with their cached
// payloads, ordered by position. Widgets without cached data come back
// with empty cache fields.
func (s *Store) WidgetsWithCache(dashboardID string) ([]WidgetWithCache, error) {
	var widgets []Widget
	if err := s.db.Where("dashboard_id = ?", dashboardID).Order("position").Find(&widgets).Error; err != nil {
		return nil, err
	}

	ids := make([]string, len(widgets))
	for i, w := range widgets {
		ids[i] = w.ID
	}

	var caches []WidgetDataCache
	if len(ids) > 0 {
		if err := s.db.Where("widget_id IN ?", ids).Find(&caches).Error; err != nil {
			return nil, err
		}
	}
	byWidget := make(map[string]WidgetDataCache, len(caches))
	for _, c := range caches {
		byWidget[c.WidgetID] = c
	}

	out := make([]WidgetWithCache, len(widgets))
	for i, w := range widgets {
		out[i] = WidgetWithCache{Widget: w}
		if c, ok := byWidget[w.ID]; ok {
			updatedAt := c.UpdatedAt
			out[i].CachedData = c.DataJSON
			out[i].CacheUpdatedAt = &updatedAt
		}
	}
	return out, nil
}

// UpsertCache stores a widget's fetched payload, replacing any previous
// row for the same widget.
func (s *Store) UpsertCache(widgetID, dataJSON string) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "widget_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data_json", "updated_at"}),
	}).Create(&WidgetDataCache{
		WidgetID:  widgetID,
		DataJSON:  dataJSON,
		UpdatedAt: time.Now().UTC(),
	}).Error
}

// GetCache returns a widget's cached payload, or ErrNotFound.
func (s *Store) GetCache(widgetID string) (*WidgetDataCache, error) {
	var c WidgetDataCache
	if err := s.db.First(&c, "widget_id = ?", widgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SaveSource creates or updates a data source.
func (s *Store) SaveSource(src *DataSource) error {
	return s.db.Save(src).Error
}

// GetSource looks up a data source by ID.
func (s *Store) GetSource(id string) (*DataSource, error) {
	var src DataSource
	if err := s.db.First(&src, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &src, nil
}

// ListSources returns all registered data sources.
func (s *Store) ListSources() ([]DataSource, error) {
	var out []DataSource
	err := s.db.Order("id").Find(&out).Error
	return out, err
}
