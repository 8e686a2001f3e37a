package models

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// Sheets sync task types.
const (
	SyncTaskUpsert   = "upsert"
	SyncTaskDelete   = "delete"
	SyncTaskFullSync = "full_sync"
)

const (
	// DefaultDraftTTL время жизни черновика формы бронирования в секундах
	DefaultDraftTTL = 24 * 60 * 60

	// DefaultPollInterval интервал опроса списка бронирований клиентом в секундах
	DefaultPollInterval = 15

	// DefaultSendTimeout ограничение на отправку одного письма в секундах
	DefaultSendTimeout = 30

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128

	// SheetsCacheTTL время жизни кэша строк Google Sheets
	SheetsCacheTTL = 60 * 60
)
