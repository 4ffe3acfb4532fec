package types

// JSONMap is a free-form JSON object persisted through GORM's json serializer.
// Trace inputs/outputs and safety metadata use it so audit rows stay queryable
// as JSON rather than opaque strings.
type JSONMap map[string]any
