package models

// IngestionRecord is the persisted result of processing one document.
// The fixed fields identify and describe the source object; Extracted
// holds whatever properties the model returned, flattened into the
// same namespace at write time so each property is queryable as its
// own field without a schema migration.
type IngestionRecord struct {
	ID             string
	DocumentName   string
	Bucket         string
	UploadTime     string
	ProcessingTime string
	FileHash       string
	FileSize       int
	ContentType    string

	// PageCount is only present for paginated formats.
	PageCount    int
	HasPageCount bool

	// Extracted properties are merged over the fixed fields on
	// name collision; see Flatten.
	Extracted map[string]any
}

// Flatten produces the flat field map written to the record store.
// Fixed fields are set first, then every extracted property is merged
// over them. An extracted property whose name matches a fixed field
// replaces it; OverwrittenFixedFields reports which ones did.
func (r *IngestionRecord) Flatten() map[string]any {
	fields := map[string]any{
		"id":              r.ID,
		"document_name":   r.DocumentName,
		"bucket":          r.Bucket,
		"upload_time":     r.UploadTime,
		"processing_time": r.ProcessingTime,
		"file_hash":       r.FileHash,
		"file_size":       r.FileSize,
		"content_type":    r.ContentType,
	}
	if r.HasPageCount {
		fields["page_count"] = r.PageCount
	}
	for name, value := range r.Extracted {
		fields[name] = value
	}
	return fields
}

// OverwrittenFixedFields returns the names of fixed fields that an
// extracted property will shadow when the record is flattened.
func (r *IngestionRecord) OverwrittenFixedFields() []string {
	fixed := []string{
		"id", "document_name", "bucket", "upload_time",
		"processing_time", "file_hash", "file_size", "content_type",
	}
	if r.HasPageCount {
		fixed = append(fixed, "page_count")
	}
	var shadowed []string
	for _, name := range fixed {
		if _, ok := r.Extracted[name]; ok {
			shadowed = append(shadowed, name)
		}
	}
	return shadowed
}
