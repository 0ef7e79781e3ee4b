// Package store persists widget metadata in sqlite via gorm.
//
// Four tables: dashboards, widgets, data sources, and a per-widget data
// cache. The cache keeps the last successfully fetched payload so widgets
// render instantly on load; a refresh overwrites it in place. The widgets
// listing joins the cache so callers get content and data in one query.
package store
