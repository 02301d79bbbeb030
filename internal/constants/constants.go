package constants

const (
	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard clock format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// AppName is used for config paths, keyring lookups, and log prefixes
	AppName = "embermate"

	// DefaultKeyringUser is the keyring account under which the database
	// connection string is stored
	DefaultKeyringUser = "db"

	// TrayAppIdentifier is the config directory name of the tray companion app
	TrayAppIdentifier = "embermate-tray"

	// NotifierLockfileName is the lockfile the tray app writes on startup
	NotifierLockfileName = "embermate-tray.lock"

	// NotificationDurationMs is how long tray notifications stay visible
	NotificationDurationMs = 8000

	// Default settings values
	DefaultDayStart       = "07:00"
	DefaultDayEnd         = "22:00"
	DefaultGracePeriodMin = 120
	DefaultPatientID      = "default"

	// AdjacencyWindowMin is how close (in minutes) an appointment may start
	// before a routine window before it is flagged as adjacent
	AdjacencyWindowMin = 30
)
