package constants

import "time"

const (
	AppName            = "habita"
	DefaultKeyringUser = "sync-connection"
	DefaultConfigPath  = "~/.config/habita/habita.db"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Grid placement
	MaxPages        = 4
	MaxSlotsPerPage = 6

	// Statistics windows in days
	WeekWindowDays          = 7
	MonthWindowDays         = 30
	CompatibilityWindowDays = 30

	// Write-behind persistence
	DefaultAutosaveDebounce   = 500 * time.Millisecond
	DefaultAutosaveMaxPending = 20

	// Cloud sync
	SyncBatchSize          = 50
	SyncMaxCompletionDates = 365

	// Notify constants
	NotifyMaxRetries       = 3
	NotifyRetryDelay       = 100 * time.Millisecond
	NotifierLockfileName   = "habita-notifier.lock"
	NotificationDurationMs = 5000
	TrayAppIdentifier      = "com.julianstephens.habita"
	ReminderTickInterval   = 30 * time.Second

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habita-"
	BackupFileSuffix = ".db"

	// Export
	ExportFilePrefix = "habita_backup_"
	ExportTimeFormat = "2006-01-02_150405"
)
