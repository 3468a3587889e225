package payloads

// ModuleCleanupPayload задача на удаление файлов модуля, чья запись уже удалена из бд.
type ModuleCleanupPayload struct {
	Folder     string `json:"folder"`
	ArchiveKey string `json:"archive_key,omitempty"`
	Reason     string `json:"reason"`
}
