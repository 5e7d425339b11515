package models

// File is a stored attachment binary. FilePath is absolute.
type File struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	FilePath string `json:"-"`
}

// TaskFile links one file to the task that owns it.
type TaskFile struct {
	ID     int64 `json:"id"`
	TaskID int64 `json:"task_id"`
	FileID int64 `json:"file_id"`
}

// TempUploadedFile describes a staged upload awaiting a task save.
type TempUploadedFile struct {
	FileName     string `json:"FileName"`
	TempFilePath string `json:"TempFilePath"`
	ContentType  string `json:"ContentType"`
	Size         int64  `json:"Size"`
}
