package ignore

// IgnoreFileName is the per-root file holding gitignore-style exclusion rules.
const IgnoreFileName = ".filefindignore"

// DefaultExcludedDirs contains directory names that are never indexed or watched.
// Any path segment starting with a dot is excluded as well.
var DefaultExcludedDirs = []string{
	// Windows system folders
	"$Recycle.Bin",
	"Windows.old",
	"$WINDOWS.~BT",
	"System Volume Information",
	"ProgramData",
	"AppData",

	// Version control
	".git",

	// Dependencies / caches
	"node_modules",
	"__pycache__",
	"venv",
	"env",
}
