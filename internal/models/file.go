package models

// FileInfo describes one file in the shared folder. Modified is unix
// seconds; nothing beyond what the filesystem provides is tracked.
type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"`
}

// UploadResult is returned by the upload service. Final reports whether the
// shared folder was touched: it is false for intermediate chunks, in which
// case Filename and Size are zero.
type UploadResult struct {
	Final    bool
	Filename string
	Size     int64
}
