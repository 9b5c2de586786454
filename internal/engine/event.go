package engine

// Event is a normalized inbound update: a chat identity plus free text
// and/or a document attachment.
type Event struct {
	ChatID   int64
	Text     string
	Document *Document
}

// Document describes an inbound file attachment by its opaque transport
// reference.
type Document struct {
	RefID     string
	FileName  string
	MediaType string
	SizeBytes int64
}

// fields flattens the descriptor into the form stored in session data and
// serialized into admin notifications.
func (d *Document) fields() map[string]any {
	return map[string]any{
		"file_id":   d.RefID,
		"file_name": d.FileName,
		"mime":      d.MediaType,
		"size":      d.SizeBytes,
	}
}
