package store

import (
	"time"
)

// Dashboard groups a set of widgets under one view.
type Dashboard struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Widget is a persisted generated widget. ComponentSource holds the raw
// generated code; SourceJSON the serialized data source configuration.
type Widget struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	DashboardID     string    `gorm:"index" json:"dashboard_id"`
	Title           string    `json:"title"`
	ComponentSource string    `json:"component_source"`
	ComponentKind   string    `json:"component_kind"`
	SourceJSON      string    `json:"source_json"`
	Position        int       `json:"position"`
	Explanation     string    `json:"explanation,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DataSource is a registered upstream source widgets can draw from.
type DataSource struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	Endpoint    string    `json:"endpoint"`
	ParamsJSON  string    `json:"params_json,omitempty"`
	StaticJSON  string    `json:"static_json,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WidgetDataCache holds the last fetched payload per widget. One row per
// widget; refreshes overwrite in place.
type WidgetDataCache struct {
	WidgetID  string    `gorm:"primaryKey" json:"widget_id"`
	DataJSON  string    `json:"data_json"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WidgetWithCache is a widget joined with its cached payload, the shape
// the widgets listing returns.
type WidgetWithCache struct {
	Widget
	CachedData     string     `json:"cached_data,omitempty"`
	CacheUpdatedAt *time.Time `json:"cache_updated_at,omitempty"`
}
