package domain

// ArchiveStats holds aggregate counts reported by the stats command.
type ArchiveStats struct {
	TotalRecords int64  `json:"total_records"`
	UniqueImages int64  `json:"unique_images"`
	TextBytes    int64  `json:"text_bytes"`
	DBSizeBytes  int64  `json:"db_size_bytes"`
	DBPath       string `json:"db_path"`
}
