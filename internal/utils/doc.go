// Package utils provides validation helpers shared across the HTTP and
// rendering layers.
//
// Validation:
//   - Identifier format and length validation
//   - Component source size limits
//   - Resolved data size and nesting depth limits
//   - JSON size and structure validation
//
// Example Usage:
//
//	if err := utils.ValidateID(widgetID, "widget_id", true); err != nil { ... }
//
//	validator := utils.NewJSONSizeValidator(1024 * 1024)
//	err := validator.ValidateJSON(jsonData)
package utils
